package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

const (
	cartKeyPrefix         = "cart:"
	cartTTL               = 30 * 24 * time.Hour
	defaultIdempotencyTTL = 24 * time.Hour
)

// A cart is three keys: quantities and prices as hashes keyed by item id,
// plus a list keeping the order lines were first added in.
var addItemScript = redis.NewScript(`
local qtyKey = KEYS[1]
local priceKey = KEYS[2]
local orderKey = KEYS[3]
local id = ARGV[1]
local quantity = tonumber(ARGV[2])
local price = ARGV[3]
local ttl = tonumber(ARGV[4])

if redis.call('HEXISTS', qtyKey, id) == 0 then
	redis.call('RPUSH', orderKey, id)
end
local current = redis.call('HINCRBY', qtyKey, id, quantity)
redis.call('HSET', priceKey, id, price)

redis.call('EXPIRE', qtyKey, ttl)
redis.call('EXPIRE', priceKey, ttl)
redis.call('EXPIRE', orderKey, ttl)
return current
`)

var setQuantityScript = redis.NewScript(`
local qtyKey = KEYS[1]
local priceKey = KEYS[2]
local orderKey = KEYS[3]
local id = ARGV[1]
local quantity = tonumber(ARGV[2])

if redis.call('HEXISTS', qtyKey, id) == 0 then
	return -1
end

if quantity <= 0 then
	redis.call('HDEL', qtyKey, id)
	redis.call('HDEL', priceKey, id)
	redis.call('LREM', orderKey, 0, id)
	return 0
end

redis.call('HSET', qtyKey, id, quantity)
return quantity
`)

// takeItemsScript removes the requested lines and returns id, quantity and
// price triples for the lines that were still present.
var takeItemsScript = redis.NewScript(`
local qtyKey = KEYS[1]
local priceKey = KEYS[2]
local orderKey = KEYS[3]
local taken = {}

for _, id in ipairs(ARGV) do
	local quantity = redis.call('HGET', qtyKey, id)
	if quantity then
		local price = redis.call('HGET', priceKey, id) or ''
		redis.call('HDEL', qtyKey, id)
		redis.call('HDEL', priceKey, id)
		redis.call('LREM', orderKey, 0, id)
		table.insert(taken, id)
		table.insert(taken, quantity)
		table.insert(taken, price)
	end
end
return taken
`)

// restoreItemsScript re-adds id, quantity and price triples in one call.
var restoreItemsScript = redis.NewScript(`
local qtyKey = KEYS[1]
local priceKey = KEYS[2]
local orderKey = KEYS[3]
local ttl = tonumber(ARGV[1])

for i = 2, #ARGV, 3 do
	local id = ARGV[i]
	if redis.call('HEXISTS', qtyKey, id) == 0 then
		redis.call('RPUSH', orderKey, id)
	end
	redis.call('HINCRBY', qtyKey, id, tonumber(ARGV[i + 1]))
	redis.call('HSET', priceKey, id, ARGV[i + 2])
end

redis.call('EXPIRE', qtyKey, ttl)
redis.call('EXPIRE', priceKey, ttl)
redis.call('EXPIRE', orderKey, ttl)
return 1
`)

type RedisAdapter struct {
	client         *redis.Client
	idempotencyTTL time.Duration
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client, idempotencyTTL: defaultIdempotencyTTL}
}

// WithIdempotencyTTL overrides how long idempotency keys are remembered.
func (r *RedisAdapter) WithIdempotencyTTL(ttl time.Duration) *RedisAdapter {
	if ttl > 0 {
		r.idempotencyTTL = ttl
	}
	return r
}

func cartKeys(userID string) []string {
	base := cartKeyPrefix + userID
	return []string{base + ":qty", base + ":price", base + ":order"}
}

func (r *RedisAdapter) GetCart(ctx context.Context, userID string) ([]domain.CartLineItem, error) {
	keys := cartKeys(userID)

	pipe := r.client.Pipeline()
	qtyCmd := pipe.HGetAll(ctx, keys[0])
	priceCmd := pipe.HGetAll(ctx, keys[1])
	orderCmd := pipe.LRange(ctx, keys[2], 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}

	quantities := qtyCmd.Val()
	prices := priceCmd.Val()

	items := make([]domain.CartLineItem, 0, len(quantities))
	for _, id := range orderCmd.Val() {
		raw, ok := quantities[id]
		if !ok {
			continue
		}
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse quantity for %s: %w", id, err)
		}

		price := decimal.Zero
		if p, ok := prices[id]; ok {
			parsed, err := decimal.NewFromString(p)
			if err != nil {
				return nil, fmt.Errorf("parse price for %s: %w", id, err)
			}
			price = parsed
		}

		items = append(items, domain.CartLineItem{ID: id, Quantity: qty, LastKnownPrice: price})
	}
	return items, nil
}

func (r *RedisAdapter) AddItem(ctx context.Context, userID, itemID string, quantity int, price decimal.Decimal) error {
	ttl := int64(cartTTL / time.Second)
	return addItemScript.Run(ctx, r.client, cartKeys(userID), itemID, quantity, price.String(), ttl).Err()
}

func (r *RedisAdapter) SetQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	result, err := setQuantityScript.Run(ctx, r.client, cartKeys(userID), itemID, quantity).Int()
	if err != nil {
		return err
	}
	if result < 0 {
		return port.ErrNotFound
	}
	return nil
}

func (r *RedisAdapter) RemoveItems(ctx context.Context, userID string, itemIDs ...string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	keys := cartKeys(userID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, keys[0], itemIDs...)
		pipe.HDel(ctx, keys[1], itemIDs...)
		for _, id := range itemIDs {
			pipe.LRem(ctx, keys[2], 0, id)
		}
		return nil
	})
	return err
}

func (r *RedisAdapter) TakeItems(ctx context.Context, userID string, itemIDs ...string) ([]domain.CartLineItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	raw, err := takeItemsScript.Run(ctx, r.client, cartKeys(userID), args...).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("take cart lines: %w", err)
	}

	items := make([]domain.CartLineItem, 0, len(raw)/3)
	for i := 0; i+2 < len(raw); i += 3 {
		id := raw[i]
		qty, err := strconv.Atoi(raw[i+1])
		if err != nil {
			return nil, fmt.Errorf("parse quantity for %s: %w", id, err)
		}
		price := decimal.Zero
		if raw[i+2] != "" {
			price, err = decimal.NewFromString(raw[i+2])
			if err != nil {
				return nil, fmt.Errorf("parse price for %s: %w", id, err)
			}
		}
		items = append(items, domain.CartLineItem{ID: id, Quantity: qty, LastKnownPrice: price})
	}
	return items, nil
}

// RestoreItems puts every line back in a single script call.
func (r *RedisAdapter) RestoreItems(ctx context.Context, userID string, items []domain.CartLineItem) error {
	if len(items) == 0 {
		return nil
	}
	args := make([]any, 0, 1+3*len(items))
	args = append(args, int64(cartTTL/time.Second))
	for _, item := range items {
		args = append(args, item.ID, item.Quantity, item.LastKnownPrice.String())
	}

	if err := restoreItemsScript.Run(ctx, r.client, cartKeys(userID), args...).Err(); err != nil {
		return fmt.Errorf("restore cart lines: %w", err)
	}
	return nil
}

func (r *RedisAdapter) ClearCart(ctx context.Context, userID string) error {
	return r.client.Del(ctx, cartKeys(userID)...).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
