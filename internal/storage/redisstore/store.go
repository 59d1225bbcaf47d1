// Package redisstore 把数据集作为单个JSON值保存在Redis中，并提供基于列表的投票动态。
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/bytedance/sonic"
	"github.com/go-redis/redis/v8"
)

// DefaultKey 是保存数据集的Redis键
const DefaultKey = "vibeoff:dataset"

// payload 是Redis中保存的JSON结构，与文件后端的布局一致
type payload struct {
	Characters []character.Character `json:"characters"`
	UserState  *quota.UserState      `json:"user_state"`
}

// Store 是基于Redis的 dataset.Repository。
// 整个数据集保存在一个String键中，SET 天然是原子的整体写入。
type Store struct {
	rdb *redis.Client
	key string
}

// New 创建Redis仓库，key 为空时使用 DefaultKey
func New(rdb *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{rdb: rdb, key: key}
}

func (s *Store) Load(ctx context.Context) (*dataset.Dataset, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, dataset.ErrNotFound
		}
		return nil, fmt.Errorf("从Redis读取数据集失败: %w", err)
	}

	var p payload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", dataset.ErrMalformed, err)
	}
	if p.Characters == nil || p.UserState == nil {
		return nil, fmt.Errorf("%w: missing characters or user_state", dataset.ErrMalformed)
	}
	return &dataset.Dataset{Characters: p.Characters, User: *p.UserState}, nil
}

func (s *Store) Save(ctx context.Context, ds *dataset.Dataset) error {
	user := ds.User
	raw, err := sonic.Marshal(payload{Characters: ds.Characters.List(), UserState: &user})
	if err != nil {
		return fmt.Errorf("序列化数据集失败: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("写入Redis失败: %w", err)
	}
	return nil
}
