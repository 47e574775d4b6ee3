package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "cart:"
	//WATCHが競合したときのやり直し回数
	maxUpdateAttempts = 10
)

var ErrCartBusy = errors.New("cart is being updated concurrently")

// セッションIDごとのカートをJSONでredisに置く。
// 保存のたびにTTLを延長する
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

func cartKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *RedisCartStore) Load(ctx context.Context, sessionID string) (model.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	return decodeCart(data, err)
}

func decodeCart(data []byte, err error) (model.Cart, error) {
	if errors.Is(err, redis.Nil) {
		return model.NewCart(), nil
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("load cart: %w", err)
	}

	var cart model.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		//壊れた値は空カートとして扱う
		return model.NewCart(), nil
	}
	if cart.Lines == nil {
		cart.Lines = map[string]model.CartLine{}
	}
	return cart, nil
}

func (s *RedisCartStore) Save(ctx context.Context, sessionID string, cart model.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisCartStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// WATCHしたキーが途中で書き換えられたらEXECが失敗するので、読み直してやり直す
func (s *RedisCartStore) Update(ctx context.Context, sessionID string, fn func(cart *model.Cart) error) (model.Cart, error) {
	key := cartKey(sessionID)

	var updated model.Cart
	txf := func(tx *redis.Tx) error {
		cart, err := decodeCart(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		if err := fn(&cart); err != nil {
			return err
		}

		data, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			//空になったらキーごと消す
			if cart.IsEmpty() {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, data, s.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = cart
		return nil
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return model.Cart{}, err
		}
		return updated, nil
	}
	return model.Cart{}, ErrCartBusy
}
