package otp

import (
	"context"
	"sync"
	"time"

	"github.com/uslugio/auth/internal/common"
	"github.com/uslugio/auth/internal/logging"
)

type record struct {
	code      string
	expiresAt time.Time
}

// MemoryStore keeps codes in a process-local map. Expired entries are dropped
// on the next Verify touching the key and swept on every Generate, so
// abandoned keys do not accumulate in a long-lived process.
type MemoryStore struct {
	mu     sync.Mutex
	items  map[string]record
	ttl    time.Duration
	logger logging.Logger

	now func() time.Time
}

func NewMemoryStore(ttl time.Duration, logger logging.Logger) *MemoryStore {
	return &MemoryStore{
		items:  make(map[string]record),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (s *MemoryStore) Generate(ctx context.Context, subjectKey string) (string, error) {
	code, err := common.MakeRandDigits(CodeDigits)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	now := s.now()
	for k, r := range s.items {
		if now.After(r.expiresAt) {
			delete(s.items, k)
		}
	}
	s.items[subjectKey] = record{code: code, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()

	s.logger.Info(ctx, "otp generated", "subject", subjectKey, "ttl", s.ttl)
	return code, nil
}

func (s *MemoryStore) Verify(ctx context.Context, subjectKey, candidate string) (bool, error) {
	s.mu.Lock()
	rec, ok := s.items[subjectKey]
	if ok && s.now().After(rec.expiresAt) {
		delete(s.items, subjectKey)
		ok = false
	}
	match := ok && rec.code == candidate
	if match {
		delete(s.items, subjectKey)
	}
	s.mu.Unlock()

	switch {
	case !ok:
		s.logger.Info(ctx, "otp verify failed: not found or expired", "subject", subjectKey)
	case !match:
		s.logger.Info(ctx, "otp verify failed: mismatch", "subject", subjectKey)
	default:
		s.logger.Info(ctx, "otp verified", "subject", subjectKey)
	}
	return match, nil
}
