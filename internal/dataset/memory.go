package dataset

import (
	"context"
	"sync"
)

// Memory 是一个进程内的 Repository，保存的是数据集的副本。
// 主要用于测试，也可以在不需要持久化的场景下使用。
type Memory struct {
	mu    sync.Mutex
	ds    *Dataset
	saves int

	// LoadErr 和 SaveErr 非空时，对应的操作直接返回该错误
	LoadErr error
	SaveErr error
}

// NewMemory 创建一个内存仓库，initial 可以为 nil
func NewMemory(initial *Dataset) *Memory {
	m := &Memory{}
	if initial != nil {
		m.ds = initial.Clone()
	}
	return m
}

func (m *Memory) Load(_ context.Context) (*Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.ds == nil {
		return nil, ErrNotFound
	}
	return m.ds.Clone(), nil
}

func (m *Memory) Save(_ context.Context, ds *Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.ds = ds.Clone()
	m.saves++
	return nil
}

// Saves 返回成功保存的次数
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Snapshot 返回当前保存的数据集副本，尚未保存过时返回 nil
func (m *Memory) Snapshot() *Dataset {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ds == nil {
		return nil
	}
	return m.ds.Clone()
}
