package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/quota"
)

// Repository 抽象了数据集的整体读写。
// Load 在没有数据时返回 ErrNotFound，在数据无法解码或缺少必要字段时返回 ErrMalformed，
// 其余后端错误原样返回，由调用方包装为 ErrPersistence。
type Repository interface {
	Load(ctx context.Context) (*Dataset, error)
	Save(ctx context.Context, ds *Dataset) error
}

// Outcome 描述了 LoadOrSeed 是如何得到数据集的
type Outcome int

const (
	// Loaded 表示成功读取了已持久化的数据集
	Loaded Outcome = iota
	// Reseeded 表示持久化数据不存在或已损坏，已重新播种并保存
	Reseeded
)

func (o Outcome) String() string {
	if o == Reseeded {
		return "reseeded"
	}
	return "loaded"
}

// LoadResult 是 LoadOrSeed 的返回值
type LoadResult struct {
	Dataset *Dataset
	Outcome Outcome
	// Cause 在 Reseeded 时记录触发重新播种的原因，供调用方记录日志
	Cause error
}

// LoadOrSeed 读取数据集；若不存在或已损坏，则重新播种并立即保存。
func LoadOrSeed(ctx context.Context, repo Repository, opts character.SeedOptions, today quota.Date) (LoadResult, error) {
	// 1. 尝试读取
	ds, err := repo.Load(ctx)
	if err == nil {
		err = ds.Validate()
	}
	if err == nil {
		return LoadResult{Dataset: ds, Outcome: Loaded}, nil
	}

	// 2. 只有"不存在"和"已损坏"才会触发重新播种，其余错误直接失败
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrMalformed) {
		return LoadResult{}, fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}

	// 3. 重新播种并保存
	seeded := New(opts, today)
	if saveErr := repo.Save(ctx, seeded); saveErr != nil {
		return LoadResult{}, fmt.Errorf("%w: save reseeded dataset: %w", ErrPersistence, saveErr)
	}
	return LoadResult{Dataset: seeded, Outcome: Reseeded, Cause: err}, nil
}

// Save 保存数据集并把后端错误包装为 ErrPersistence
func Save(ctx context.Context, repo Repository, ds *Dataset) error {
	if err := repo.Save(ctx, ds); err != nil {
		return fmt.Errorf("%w: save: %w", ErrPersistence, err)
	}
	return nil
}

// Copy 把 from 中的数据集原样写入 to。
// 源数据必须存在、结构完整且计数器自洽，不会在源端触发重新播种。
func Copy(ctx context.Context, from, to Repository) (*Dataset, error) {
	ds, err := from.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("validate source dataset: %w", err)
	}
	if err := ds.CheckIntegrity(); err != nil {
		return nil, fmt.Errorf("check source dataset: %w", err)
	}
	if err := to.Save(ctx, ds); err != nil {
		return nil, fmt.Errorf("%w: save target dataset: %w", ErrPersistence, err)
	}
	return ds, nil
}
