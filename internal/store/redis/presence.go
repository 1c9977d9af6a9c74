package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/sol-e-e/realtime-chat/internal/chat"
)

const DefaultPrefix = "chat"

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", addr)
	}
	return rdb, nil
}

// PresenceStore keeps the online flag of users in a set and their last seen
// time in one key per user:
//
//	<prefix>:online            set of online user ids
//	<prefix>:last_seen:<user>  unix milliseconds
type PresenceStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewPresenceStore(rdb *redis.Client, prefix string) *PresenceStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &PresenceStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (p *PresenceStore) onlineKey() string { return p.prefix + ":online" }

func (p *PresenceStore) lastSeenKey(userID string) string { return p.prefix + ":last_seen:" + userID }

func (p *PresenceStore) UpdateUserOnlineStatus(ctx context.Context, userID string, online bool) error {
	pipe := p.rdb.TxPipeline()
	if online {
		pipe.SAdd(ctx, p.onlineKey(), userID)
	} else {
		pipe.SRem(ctx, p.onlineKey(), userID)
	}
	pipe.Set(ctx, p.lastSeenKey(userID), p.now().UnixMilli(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "update presence of %s", userID)
	}
	return nil
}

// Presence reads the online flag and last seen time of a user in one round
// trip. Users never seen come back offline with a zero LastSeen.
func (p *PresenceStore) Presence(ctx context.Context, userID string) (chat.Presence, error) {
	pipe := p.rdb.Pipeline()
	member := pipe.SIsMember(ctx, p.onlineKey(), userID)
	seen := pipe.Get(ctx, p.lastSeenKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return chat.Presence{}, errors.Wrapf(err, "lookup presence of %s", userID)
	}

	out := chat.Presence{UserID: userID, Online: member.Val()}
	raw, err := seen.Result()
	if errors.Is(err, redis.Nil) {
		return out, nil
	}
	if err != nil {
		return chat.Presence{}, errors.Wrapf(err, "get last seen of %s", userID)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return chat.Presence{}, errors.Wrapf(err, "parse last seen of %s", userID)
	}
	out.LastSeen = time.UnixMilli(ms).UTC()
	return out, nil
}

// Reset clears the online set. Nobody is connected to a freshly started
// process, so whatever a previous run left there is stale.
func (p *PresenceStore) Reset(ctx context.Context) error {
	return errors.Wrap(p.rdb.Del(ctx, p.onlineKey()).Err(), "reset online set")
}
