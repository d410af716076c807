// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores the two keys on a Redis server as
// "<prefix>:token" and "<prefix>:user". Hosts sharing the server and
// prefix share one session.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisRepository wraps rdb. A positive ttl expires both keys together;
// zero keeps them until Clear.
func NewRedisRepository(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisRepository {
	if prefix == "" {
		prefix = "yinlan"
	}
	return &RedisRepository{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisRepository) key(name string) string {
	return r.prefix + ":" + name
}

// Load implements Repository.
func (r *RedisRepository) Load(ctx context.Context) (Record, error) {
	vals, err := r.rdb.MGet(ctx, r.key(KeyToken), r.key(KeyUser)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("redis mget: %w", err)
	}

	str := func(i int) string {
		if i >= len(vals) {
			return ""
		}
		s, _ := vals[i].(string)
		return s
	}
	token := str(0)
	u, err := decodeUser(str(1))
	if err != nil {
		return Record{Token: token}, err
	}
	return Record{Token: token, User: u}, nil
}

// Save implements Repository. Both keys are written in one MULTI/EXEC.
func (r *RedisRepository) Save(ctx context.Context, rec Record) error {
	raw, err := encodeUser(rec.User)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, kv := range [][2]string{{KeyToken, rec.Token}, {KeyUser, raw}} {
			if kv[1] == "" {
				p.Del(ctx, r.key(kv[0]))
				continue
			}
			p.Set(ctx, r.key(kv[0]), kv[1], r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// Clear implements Repository.
func (r *RedisRepository) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key(KeyToken), r.key(KeyUser)).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}
