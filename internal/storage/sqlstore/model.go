package sqlstore

import (
	"time"

	"github.com/brydisanto/vibeoff/internal/character"
	"gorm.io/gorm"
)

// CharacterRecord 定义了角色在数据库中的存储结构
type CharacterRecord struct {
	// ID 是角色ID，直接作为主键，不使用自增
	ID int `gorm:"primaryKey;autoIncrement:false"`

	// Position 记录播种顺序，排行榜的最终平局规则依赖它
	Position int `gorm:"not null;index"`

	Name     string `gorm:"type:varchar(255);not null"`
	URL      string `gorm:"type:varchar(512)"`
	ImageURL string `gorm:"type:varchar(512)"`

	// --- 以下是用于排名的字段 ---
	Wins    int `gorm:"not null"`
	Losses  int `gorm:"not null"`
	Matches int `gorm:"not null"`

	UpdatedAt time.Time
}

// TableName 指定表名
func (CharacterRecord) TableName() string {
	return "characters"
}

func toRecord(position int, c character.Character) CharacterRecord {
	return CharacterRecord{
		ID:       c.ID,
		Position: position,
		Name:     c.Name,
		URL:      c.ExternalURL,
		ImageURL: c.ImageURL,
		Wins:     c.Wins,
		Losses:   c.Losses,
		Matches:  c.Matches,
	}
}

func (r CharacterRecord) toCharacter() character.Character {
	return character.Character{
		ID:          r.ID,
		Name:        r.Name,
		ExternalURL: r.URL,
		ImageURL:    r.ImageURL,
		Wins:        r.Wins,
		Losses:      r.Losses,
		Matches:     r.Matches,
	}
}

// VoteRecordModel 定义了单条投票动态的数据结构
type VoteRecordModel struct {
	gorm.Model

	WinnerID   int    `gorm:"not null"`
	LoserID    int    `gorm:"not null"`
	WinnerName string `gorm:"type:varchar(255)"`
	LoserName  string `gorm:"type:varchar(255)"`

	// VotedAt 是投票时间，用于倒序读取
	VotedAt time.Time `gorm:"index;not null"`
}

// TableName 指定表名
func (VoteRecordModel) TableName() string {
	return "vote_records"
}
