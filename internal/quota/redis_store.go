// AngelaMos | 2026
// redis_store.go

package quota

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

// incrementIfBelow runs server-side so the compare and the increment are one
// step for every client.
var incrementIfBelow = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if current < tonumber(ARGV[2]) then
	redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
	return 1
end
return 0
`)

type redisStore struct {
	client redis.UniversalClient
}

// NewRedisStore keeps one hash per user and month. Hashes carry no TTL;
// a new month simply uses a new key.
func NewRedisStore(client redis.UniversalClient) Store {
	return &redisStore{client: client}
}

func counterKey(userID, monthKey string) string {
	return "usage:" + userID + ":" + monthKey
}

func (s *redisStore) EnsureCounter(
	ctx context.Context,
	userID, monthKey string,
) error {
	key := counterKey(userID, monthKey)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, column := range resourceColumns {
			pipe.HSetNX(ctx, key, column, 0)
		}
		pipe.HSetNX(ctx, key, "user_id", userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure counter: %w", err)
	}
	return nil
}

func (s *redisStore) IncrementIfBelow(
	ctx context.Context,
	userID, monthKey string,
	resource Resource,
	limit int64,
) (bool, error) {
	column, ok := resourceColumns[resource]
	if !ok {
		return false, fmt.Errorf("increment counter: unknown resource %q: %w", resource, core.ErrInvalidInput)
	}

	n, err := incrementIfBelow.Run(
		ctx,
		s.client,
		[]string{counterKey(userID, monthKey)},
		column,
		limit,
	).Int()
	if err != nil {
		return false, fmt.Errorf("increment counter: %w", err)
	}

	return n == 1, nil
}

func (s *redisStore) Get(
	ctx context.Context,
	userID, monthKey string,
) (*Counter, error) {
	values, err := s.client.HGetAll(ctx, counterKey(userID, monthKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("get counter: %w", err)
	}

	counter := &Counter{UserID: userID, MonthKey: monthKey}
	if v, ok := values[resourceColumns[ResourceListings]]; ok {
		counter.ListingsCreated, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := values[resourceColumns[ResourceConversations]]; ok {
		counter.ConversationsOpened, _ = strconv.ParseInt(v, 10, 64)
	}

	return counter, nil
}
