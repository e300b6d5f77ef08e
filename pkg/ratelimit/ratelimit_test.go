package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowUpToLimit(t *testing.T) {
	rl := NewLoginRateLimiter(3, time.Minute)
	defer rl.Stop()

	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"), "4. deneme limit üstü")
}

func TestAllowIsolatedPerUsername(t *testing.T) {
	rl := NewLoginRateLimiter(1, time.Minute)
	defer rl.Stop()

	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("bob"), "bob'un sayacı alice'ten bağımsız")
}

func TestResetClearsCounter(t *testing.T) {
	rl := NewLoginRateLimiter(2, time.Minute)
	defer rl.Stop()

	rl.Allow("alice")
	rl.Allow("alice")
	assert.False(t, rl.Allow("alice"))

	rl.Reset("alice")
	assert.True(t, rl.Allow("alice"), "reset sonrası yeni pencere")
}

func TestWindowExpiry(t *testing.T) {
	rl := NewLoginRateLimiter(1, 30*time.Millisecond)
	defer rl.Stop()

	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.Allow("alice"), "pencere süresi dolunca sayaç sıfırlanır")
}

func TestRetryAfterSeconds(t *testing.T) {
	rl := NewLoginRateLimiter(1, 2*time.Minute)
	defer rl.Stop()

	assert.Equal(t, 0, rl.RetryAfterSeconds("alice"), "bucket yokken 0")

	rl.Allow("alice")
	retry := rl.RetryAfterSeconds("alice")
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 121)
}

func TestFormatRetryMessage(t *testing.T) {
	assert.Equal(t, "45 second(s)", FormatRetryMessage(45))
	assert.Equal(t, "2 minute(s)", FormatRetryMessage(120))
	assert.Equal(t, "1 minute(s)", FormatRetryMessage(90))
}
