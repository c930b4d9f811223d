package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uslugio/auth/internal/common"
	"github.com/uslugio/auth/internal/logging"
)

const keyPrefix = "otp:"

// RedisStore keeps codes in redis with a server-side TTL, so any node of a
// clustered deployment can verify a code generated on another. The redis TTL
// conflates "expired" with "never existed"; the log line says so.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger logging.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func otpKey(subjectKey string) string {
	return keyPrefix + subjectKey
}

func (s *RedisStore) Generate(ctx context.Context, subjectKey string) (string, error) {
	code, err := common.MakeRandDigits(CodeDigits)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, otpKey(subjectKey), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	s.logger.Info(ctx, "otp generated", "subject", subjectKey, "ttl", s.ttl)
	return code, nil
}

// consumeScript compares and consumes the stored code in one server-side
// step. Compare and delete must not be separate round trips: two concurrent
// calls with the correct code would otherwise both observe the live record
// and both succeed. Returns -1 when no code exists, 0 on mismatch (the code
// stays), 1 on match (the code is deleted).
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == false then
	return -1
end
if v == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return 0
`)

func (s *RedisStore) Verify(ctx context.Context, subjectKey, candidate string) (bool, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{otpKey(subjectKey)}, candidate).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	switch res {
	case -1:
		s.logger.Info(ctx, "otp verify failed: not found or expired", "subject", subjectKey)
		return false, nil
	case 0:
		s.logger.Info(ctx, "otp verify failed: mismatch", "subject", subjectKey)
		return false, nil
	}

	s.logger.Info(ctx, "otp verified", "subject", subjectKey)
	return true, nil
}
