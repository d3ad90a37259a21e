package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/studybuddy-backend/internal/data/codestore"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

// Keys outlive the code so an expired code can still be told apart from a
// wrong one.
const expiredGrace = time.Hour

// consumeScript deletes the key only if its stored value matches ARGV[1].
var consumeScript = goredis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then return 0 end
local ok, doc = pcall(cjson.decode, raw)
if not ok or doc["value"] ~= ARGV[1] then return 0 end
redis.call("DEL", KEYS[1])
return 1
`)

type CodeStore struct {
	rdb    *goredis.Client
	prefix string
	log    *logger.Logger
}

func NewCodeStore(rdb *goredis.Client, prefix string, log *logger.Logger) *CodeStore {
	return &CodeStore{rdb: rdb, prefix: prefix, log: log.With("store", "RedisCodeStore")}
}

func (s *CodeStore) codeKey(p codestore.Purpose, email string) string {
	return key(s.prefix, "code", string(p), strings.ToLower(strings.TrimSpace(email)))
}

func (s *CodeStore) Put(ctx context.Context, purpose codestore.Purpose, email string, code codestore.Code) error {
	raw, err := json.Marshal(code)
	if err != nil {
		return err
	}
	ttl := time.Until(code.ExpiresAt) + expiredGrace
	if ttl <= 0 {
		ttl = expiredGrace
	}
	return s.rdb.Set(ctx, s.codeKey(purpose, email), raw, ttl).Err()
}

func (s *CodeStore) Get(ctx context.Context, purpose codestore.Purpose, email string) (*codestore.Code, error) {
	raw, err := s.rdb.Get(ctx, s.codeKey(purpose, email)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c codestore.Code
	if err := json.Unmarshal(raw, &c); err != nil {
		s.log.Warn("dropping malformed code entry", "purpose", purpose, "error", err)
		return nil, nil
	}
	return &c, nil
}

func (s *CodeStore) Consume(ctx context.Context, purpose codestore.Purpose, email, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	n, err := consumeScript.Run(ctx, s.rdb, []string{s.codeKey(purpose, email)}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
