package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/redis/go-redis/v9"
)

// OrderCache is a read-through cache of order details keyed by order id.
type OrderCache struct {
	rdb redis.Cmdable
}

func NewOrderCache(rdb redis.Cmdable) *OrderCache { return &OrderCache{rdb: rdb} }

// Get reports ok=false on a miss.
func (c *OrderCache) Get(ctx context.Context, orderID int64) (orders.Order, bool, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrder, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.Order{}, false, nil
	}
	if err != nil {
		return orders.Order{}, false, err
	}
	var o orders.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return orders.Order{}, false, fmt.Errorf("decode cached order %d: %w", orderID, err)
	}
	return o, true, nil
}

// putOrder: KEYS[1] order key; ARGV[1] json, ARGV[2] ttl ms, ARGV[3] "1" when the
// new status is terminal, ARGV[4..] the terminal statuses. Returns 0 when skipped.
var putOrder = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and ARGV[3] == '0' then
  local ok, doc = pcall(cjson.decode, cur)
  if ok and type(doc) == 'table' then
    for i = 4, #ARGV do
      if doc['status'] == ARGV[i] then
        return 0
      end
    end
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

var terminalStatuses = []any{string(orders.StatusCompleted), string(orders.StatusFailed)}

// Put caches o unless the cached copy already has a terminal status and o does
// not. Order status only moves forward, so a snapshot read before a payment
// can never replace the paid order.
func (c *OrderCache) Put(ctx context.Context, o orders.Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	newTerminal := "0"
	if o.Status.Terminal() {
		newTerminal = "1"
	}
	args := append([]any{b, TTLOrderCache.Milliseconds(), newTerminal}, terminalStatuses...)
	return putOrder.Run(ctx, c.rdb, []string{fmt.Sprintf(KeyOrder, o.ID)}, args...).Err()
}

func (c *OrderCache) Invalidate(ctx context.Context, orderID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf(KeyOrder, orderID)).Err()
}
