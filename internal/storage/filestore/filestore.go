// Package filestore 把数据集保存为单个JSON文件，格式与最初原型的 game_data.json 相同。
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/goccy/go-json"
)

// DefaultPath 是默认的数据文件路径
const DefaultPath = "game_data.json"

// fileLayout 是磁盘上的JSON结构。
// 指针字段用于区分"缺失"和"零值"，缺失的顶层字段视为数据损坏。
type fileLayout struct {
	Characters []character.Character `json:"characters"`
	UserState  *userStateLayout      `json:"user_state"`
}

type userStateLayout struct {
	LastPlayedDate string `json:"last_played_date"`
	VotesToday     *int   `json:"votes_today"`
}

// Store 是基于本地JSON文件的 dataset.Repository
type Store struct {
	path string
}

// New 创建一个文件仓库，path 为空时使用 DefaultPath
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path 返回数据文件路径
func (s *Store) Path() string {
	return s.path
}

// Load 读取并解析数据文件
func (s *Store) Load(_ context.Context) (*dataset.Dataset, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dataset.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decode(raw)
}

func decode(raw []byte) (*dataset.Dataset, error) {
	var layout fileLayout
	if err := json.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("%w: %w", dataset.ErrMalformed, err)
	}
	if layout.Characters == nil {
		return nil, fmt.Errorf("%w: missing characters", dataset.ErrMalformed)
	}
	if layout.UserState == nil || layout.UserState.VotesToday == nil {
		return nil, fmt.Errorf("%w: missing user_state", dataset.ErrMalformed)
	}

	date, err := quota.ParseDate(layout.UserState.LastPlayedDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataset.ErrMalformed, err)
	}

	return &dataset.Dataset{
		Characters: layout.Characters,
		User: quota.UserState{
			LastPlayedDate: date,
			VotesToday:     *layout.UserState.VotesToday,
		},
	}, nil
}

// Save 先写入同目录下的临时文件再重命名，保证文件要么是旧版本，要么是完整的新版本
func (s *Store) Save(_ context.Context, ds *dataset.Dataset) error {
	votes := ds.User.VotesToday
	layout := fileLayout{
		Characters: ds.Characters.List(),
		UserState: &userStateLayout{
			LastPlayedDate: ds.User.LastPlayedDate.String(),
			VotesToday:     &votes,
		},
	}

	raw, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
