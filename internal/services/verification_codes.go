package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type codeEntry struct {
	mu         sync.Mutex
	code       string
	expiration time.Time
	used       bool
}

// VerificationCodeStore holds one single-use, expiring code per email. Keys
// are independent; operations on the same key are linearized by the entry lock.
type VerificationCodeStore struct {
	codes  sync.Map
	clock  clockwork.Clock
	logger *zap.Logger
}

func NewVerificationCodeStore(clock clockwork.Clock, logger *zap.Logger) *VerificationCodeStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationCodeStore{
		clock:  clock,
		logger: logger.With(zap.String("component", "verification_codes")),
	}
}

// StoreCode replaces any existing code for email.
func (store *VerificationCodeStore) StoreCode(email string, code string, ttl time.Duration) {
	key := normalizeCodeKey(email)
	expiration := store.clock.Now().Add(ttl)
	store.codes.Store(key, &codeEntry{
		code:       code,
		expiration: expiration,
	})
	store.logger.Debug("verification code stored", emailLogField(key), zap.Time("expires_at", expiration))
}

// ValidateCode consumes the code for email. It succeeds at most once per stored code.
func (store *VerificationCodeStore) ValidateCode(email string, code string) bool {
	key := normalizeCodeKey(email)
	value, ok := store.codes.Load(key)
	if !ok {
		store.logger.Debug("verification code not found", emailLogField(key))
		return false
	}
	entry := value.(*codeEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if current, ok := store.codes.Load(key); !ok || current != value {
		store.logger.Debug("verification code replaced during validation", emailLogField(key))
		return false
	}
	if entry.used {
		store.logger.Debug("verification code already used", emailLogField(key))
		return false
	}
	if store.clock.Now().After(entry.expiration) {
		store.logger.Debug("verification code expired", emailLogField(key), zap.Time("expired_at", entry.expiration))
		return false
	}
	if entry.code != code {
		store.logger.Debug("verification code mismatch", emailLogField(key))
		return false
	}

	entry.used = true
	store.logger.Debug("verification code confirmed", emailLogField(key))
	return true
}

func (store *VerificationCodeStore) InvalidateCode(email string) {
	store.codes.Delete(normalizeCodeKey(email))
}

// PurgeExpired drops used and expired entries and reports how many were removed.
func (store *VerificationCodeStore) PurgeExpired() int {
	now := store.clock.Now()
	removed := 0
	store.codes.Range(func(key, value any) bool {
		entry := value.(*codeEntry)
		entry.mu.Lock()
		stale := entry.used || now.After(entry.expiration)
		entry.mu.Unlock()
		if stale && store.codes.CompareAndDelete(key, value) {
			removed++
		}
		return true
	})
	if removed > 0 {
		store.logger.Info("purged verification codes", zap.Int("removed", removed))
	}
	return removed
}

func normalizeCodeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailLogField identifies an address in logs by a truncated SHA-256 of its
// normalized form, so related entries correlate without exposing the address.
func emailLogField(email string) zap.Field {
	sum := sha256.Sum256([]byte(normalizeCodeKey(email)))
	return zap.String("email_ref", hex.EncodeToString(sum[:6]))
}
