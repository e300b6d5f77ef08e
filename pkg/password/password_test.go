package password

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Testlerde MinCost kullanılır — cost 12 ile her hash ~100ms sürer,
// test suite'i gereksiz yavaşlatır. Doğruluk cost'tan bağımsızdır.
func newTestHasher() Hasher {
	return NewHasher(bcrypt.MinCost)
}

func TestHashVerifyRoundtrip(t *testing.T) {
	h := newTestHasher()

	digest, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, digest)

	assert.True(t, h.Verify("correct horse battery staple", digest))
	assert.False(t, h.Verify("correct horse battery staplE", digest))
	assert.False(t, h.Verify("", digest))
}

func TestHashNotPlaintext(t *testing.T) {
	h := newTestHasher()

	digest, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotContains(t, digest, "secret123")
}

func TestHashSaltedPerCall(t *testing.T) {
	h := newTestHasher()

	d1, err := h.Hash("secret123")
	require.NoError(t, err)
	d2, err := h.Hash("secret123")
	require.NoError(t, err)

	// Salt otomatik — aynı şifre iki farklı digest üretir, ikisi de doğrular
	assert.NotEqual(t, d1, d2)
	assert.True(t, h.Verify("secret123", d1))
	assert.True(t, h.Verify("secret123", d2))
}

func TestVerifyGarbageDigest(t *testing.T) {
	h := newTestHasher()
	assert.False(t, h.Verify("anything", "not-a-bcrypt-digest"))
	assert.False(t, h.Verify("anything", ""))
}

func TestHasherConcurrent(t *testing.T) {
	// Semaphore altında eşzamanlı kullanım — deadlock/yarış olmamalı
	h := newTestHasher()

	digest, err := h.Hash("pw-concurrent")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, h.Verify("pw-concurrent", digest))
		}()
	}
	wg.Wait()
}

func TestNewHasherCostClamped(t *testing.T) {
	// Aralık dışı cost'lar clamp'lenir, hasher yine çalışır.
	// MaxCost üstü denenmez — cost 31'de tek hash saatler sürer.
	for _, cost := range []int{0, -3} {
		h := NewHasher(cost)
		digest, err := h.Hash("pw")
		require.NoError(t, err)
		assert.True(t, h.Verify("pw", digest))
	}
}
