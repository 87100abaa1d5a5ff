package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matchbot/internal/cache"
	svcErr "github.com/oggyb/matchbot/internal/errors"
)

// TTL is the sliding expiry of a session, refreshed on every load and save.
const TTL = 30 * 24 * time.Hour

// Store persists sessions in Redis under session:<telegram id>.
type Store struct {
	cache *cache.RedisCache
	log   *slog.Logger
}

func NewStore(c *cache.RedisCache, log *slog.Logger) *Store {
	return &Store{cache: c, log: log}
}

// Key returns the Redis key for a Telegram user.
func Key(telegramID int64) string {
	return "session:" + strconv.FormatInt(telegramID, 10)
}

// Load returns the user's session and refreshes its expiry.
// A missing or unreadable session is an empty one, not an error. The quota of
// an unreadable session is kept when it can still be decoded.
func (s *Store) Load(ctx context.Context, telegramID int64) (*Session, error) {
	raw, err := s.cache.GetEx(ctx, Key(telegramID), TTL)
	if errors.Is(err, redis.Nil) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, svcErr.External("load session", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// flow state is dropped but the day's swipe count must not go down
		var kept struct {
			Quota Quota `json:"quota"`
		}
		if qerr := json.Unmarshal([]byte(raw), &kept); qerr != nil {
			s.log.Warn("discarding unreadable session, quota lost", "user", telegramID, "err", err)
			return &Session{}, nil
		}
		s.log.Warn("discarding unreadable session flow",
			"user", telegramID, "quota", kept.Quota.Count, "date", kept.Quota.Date, "err", err)
		return &Session{Quota: kept.Quota}, nil
	}
	sess.Normalize()
	return &sess, nil
}

// Save writes the session with a fresh expiry.
func (s *Store) Save(ctx context.Context, telegramID int64, sess *Session) error {
	sess.Normalize()
	b, err := json.Marshal(sess)
	if err != nil {
		return svcErr.Invariant("encode session: " + err.Error())
	}
	if err := s.cache.Set(ctx, Key(telegramID), b, TTL); err != nil {
		return svcErr.External("save session", err)
	}
	return nil
}
