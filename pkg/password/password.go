// Package password, tek yönlü şifre hash'leme primitive'ini sağlar.
//
// Bcrypt neden?
// - Adaptive cost: donanım hızlandıkça cost artırılabilir
// - Salt otomatik — aynı şifre her seferinde farklı digest üretir
// - Digest'ten şifre GERİ ALINAMAZ (one-way)
//
// Concurrency notu:
// Bcrypt CPU-bound'dır — cost 12'de tek hash ~100ms sürer. Sınırsız
// eşzamanlı hash, ilgisiz request'lerin goroutine'lerini CPU açlığına
// sokabilir. Bu yüzden hash/verify çağrıları buffered channel ile
// yapılan bir semaphore üzerinden geçer: aynı anda en fazla
// maxConcurrent hash çalışır, fazlası sırada bekler.
package password

import (
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// Hasher, şifre hash'leme interface'i.
// Service katmanı buna bağımlıdır — testlerde düşük cost'lu
// gerçek implementasyon kullanılır (mock gerekmez, bcrypt deterministik doğrular).
type Hasher interface {
	// Hash, plaintext şifreden bcrypt digest üretir.
	Hash(plaintext string) (string, error)

	// Verify, plaintext'in digest ile eşleşip eşleşmediğini döner.
	// Hata durumu yoktur — eşleşmeyen her durum false'tur (fail-closed).
	Verify(plaintext, digest string) bool
}

// hasher, Hasher'ın bcrypt implementasyonu.
type hasher struct {
	cost int
	sem  chan struct{} // Semaphore: len(sem) kadar eşzamanlı hash
}

// NewHasher, verilen cost ile bcrypt Hasher oluşturur.
// cost, bcrypt.MinCost..bcrypt.MaxCost aralığına sıkıştırılır;
// 0 verilirse 12 kullanılır (production varsayılanı).
func NewHasher(cost int) Hasher {
	if cost == 0 {
		cost = 12
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	// Eşzamanlılık sınırı: CPU sayısı kadar hash aynı anda çalışabilir.
	maxConcurrent := runtime.GOMAXPROCS(0)
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &hasher{
		cost: cost,
		sem:  make(chan struct{}, maxConcurrent),
	}
}

func (h *hasher) Hash(plaintext string) (string, error) {
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h *hasher) Verify(plaintext, digest string) bool {
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
