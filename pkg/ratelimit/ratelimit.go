// Package ratelimit — LoginRateLimiter: brute-force saldırılarına karşı
// kullanıcı adı bazlı login rate limiting.
//
// Tasarım:
// - Her kullanıcı adı için sliding window ile deneme sayısı takip edilir.
// - Window süresi içinde maxAttempts aşılırsa deneme reddedilir.
// - Başarılı login sonrası Reset() ile sayaç sıfırlanır.
// - Background goroutine ile süresi dolmuş bucket'lar temizlenir (memory leak engeli).
//
// Neden in-memory?
// - SQLite'a her denemede yazma gereksiz I/O + contention yaratır.
// - Redis bağımlılığı eklememek için in-memory yeterli (tek instance deploy).
// - sync.RWMutex ile thread-safe: RLock okuma, Lock yazma.
//
// Neden kullanıcı adı bazlı?
// Kimlik doğrulama çekirdeği süreç içi çağrılarla kullanılır, HTTP katmanı
// (dolayısıyla client IP) burada görünmez. Hedeflenen hesap adı üzerinden
// sınırlama, tek bir hesaba yönelik parola denemelerini keser.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// bucket, bir kullanıcı adı için deneme sayacı ve window başlangıç zamanı tutar.
//
// Sliding window algoritması:
// - İlk deneme geldiğinde windowStart = now, count = 1.
// - Sonraki denemeler: windowStart + window süresi geçmemişse count++.
// - Süre geçmişse window sıfırlanır (yeni pencere başlar).
type bucket struct {
	count       int
	windowStart time.Time
}

// LoginRateLimiter, kullanıcı adı bazlı login rate limiting.
//
// maxAttempts: Bir window içinde izin verilen maksimum deneme sayısı.
// window: Rate limit pencere süresi (örn: 2 dakika).
//
// Kullanım:
//
//	limiter := NewLoginRateLimiter(5, 2*time.Minute)
//	// Login akışında:
//	if !limiter.Allow(username) { return err }
//	// Başarılı login'de:
//	limiter.Reset(username)
type LoginRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	stopCleanup chan struct{}
}

// NewLoginRateLimiter, yeni rate limiter oluşturur ve arka plan temizleme
// goroutine'ini başlatır.
//
// maxAttempts: Pencere başına izin verilen login denemesi (ör: 5).
// window: Pencere süresi (ör: 2*time.Minute → 2 dakikada 5 deneme).
//
// Temizleme goroutine'i her dakika çalışır ve süresi dolmuş bucket'ları siler.
// Bu, uzun süre çalışan sunucularda bellek sızıntısını önler.
func NewLoginRateLimiter(maxAttempts int, window time.Duration) *LoginRateLimiter {
	rl := &LoginRateLimiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		stopCleanup: make(chan struct{}),
	}

	// Background cleanup goroutine — süresi dolmuş bucket'ları temizler.
	// Bu goroutine Stop() çağrılana kadar çalışır, her dakika map'i tarar.
	go rl.cleanupLoop()

	return rl
}

// Allow, verilen kullanıcı adının login denemesine izin verilip verilmediğini
// kontrol eder.
//
// true: Deneme kabul edildi (limit aşılmadı).
// false: Rate limit aşıldı → caller ErrBadRequest dönmeli.
//
// Her çağrı sayacı artırır (deneme başarılı olsun veya olmasın).
// Başarılı login'de caller Reset() çağırmalıdır.
func (rl *LoginRateLimiter) Allow(username string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[username]
	if !exists {
		// İlk deneme — yeni bucket oluştur
		rl.buckets[username] = &bucket{count: 1, windowStart: now}
		return true
	}

	// Window süresi dolmuş mu?
	if now.Sub(b.windowStart) > rl.window {
		// Yeni pencere başlat — eski sayaç sıfırlanır
		b.count = 1
		b.windowStart = now
		return true
	}

	// Window içindeyiz — sayacı artır
	b.count++
	return b.count <= rl.maxAttempts
}

// Reset, başarılı login sonrası kullanıcı sayacını sıfırlar.
//
// Bu fonksiyon önemli: Başarılı giriş yapan kullanıcının sayacı
// temizlenmezse, meşru kullanıcı sonraki denemelerde bloke olabilir.
func (rl *LoginRateLimiter) Reset(username string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, username)
}

// RetryAfterSeconds, rate limit aşıldığında kalan bekleme süresini saniye
// cinsinden döner. Hata mesajlarında kullanılır.
func (rl *LoginRateLimiter) RetryAfterSeconds(username string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[username]
	if !exists {
		return 0
	}

	remaining := rl.window - time.Since(b.windowStart)
	if remaining < 0 {
		return 0
	}
	seconds := int(remaining.Seconds()) + 1 // +1 yuvarlama — caller'ın tam süreyi beklemesi için
	return seconds
}

// Stop, arka plan temizleme goroutine'ini durdurur.
// Graceful shutdown sırasında çağrılır.
func (rl *LoginRateLimiter) Stop() {
	close(rl.stopCleanup)
}

// cleanupLoop, arka planda süresi dolmuş bucket'ları temizler.
// Her 60 saniyede bir çalışır, window süresi geçmiş tüm kayıtları siler.
func (rl *LoginRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup, süresi dolmuş tüm bucket'ları siler.
func (rl *LoginRateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for username, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window {
			delete(rl.buckets, username)
		}
	}
}

// FormatRetryMessage, kalan süreyi okunabilir formata çevirir.
// Örn: "120" → "2 minute(s)", "45" → "45 second(s)"
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		minutes := seconds / 60
		return fmt.Sprintf("%d minute(s)", minutes)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
