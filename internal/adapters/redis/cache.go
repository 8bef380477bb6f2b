package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/showseat/boxoffice/internal/domain"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func seatKey(showtimeID, seatID int64) string {
	return fmt.Sprintf("hold:%d:%d", showtimeID, seatID)
}

func seatMapKey(showtimeID int64) string {
	return fmt.Sprintf("seatmap:%d", showtimeID)
}

// releaseScript deletes the seat lock only while the caller's token
// still owns it. Without the ownership check a late release, issued
// after the lock's TTL lapsed and another hold re-acquired the seat,
// would evict the new holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// AcquireSeat takes the fast-path lock for one seat. The database
// partial index is the source of truth; this lock just rejects most
// losers before they open a transaction. The TTL matches the hold TTL
// so an orphaned lock can never outlive its hold.
func (c *Cache) AcquireSeat(ctx context.Context, showtimeID, seatID int64, token string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, seatKey(showtimeID, seatID), token, ttl)
	return res.Val(), res.Err()
}

// ReleaseSeat drops the seat lock if token still owns it; a missing or
// re-owned key is left alone.
func (c *Cache) ReleaseSeat(ctx context.Context, showtimeID, seatID int64, token string) error {
	return releaseScript.Run(ctx, c.client, []string{seatKey(showtimeID, seatID)}, token).Err()
}

// GetSeatMap returns the cached anonymous seat grid for a showtime, or
// a nil slice on a miss.
func (c *Cache) GetSeatMap(ctx context.Context, showtimeID int64) ([]domain.SeatView, error) {
	data, err := c.client.Get(ctx, seatMapKey(showtimeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var views []domain.SeatView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// SetSeatMap stores the anonymous seat grid. The TTL is short; the
// cache only has to absorb the polling burst between transitions.
func (c *Cache) SetSeatMap(ctx context.Context, showtimeID int64, views []domain.SeatView, ttl time.Duration) error {
	data, err := json.Marshal(views)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, seatMapKey(showtimeID), data, ttl).Err()
}

// InvalidateSeatMap drops the cached seat grid for a showtime after any
// state transition, so polling clients see the change on the next read.
func (c *Cache) InvalidateSeatMap(ctx context.Context, showtimeID int64) error {
	return c.client.Del(ctx, seatMapKey(showtimeID)).Err()
}
