package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖配置时使用的前缀，例如 VIBEOFF_GAME_DAILYLIMIT=5
const EnvPrefix = "VIBEOFF"

// 存储后端
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Game      GameConfig      `mapstructure:"game"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	History   HistoryConfig   `mapstructure:"history"`
	Backup    BackupConfig    `mapstructure:"backup"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode      string     `mapstructure:"mode" validate:"oneof=debug release test"`
	Address   string     `mapstructure:"address" validate:"required"`
	Cors      CorsConfig `mapstructure:"cors"`
	StaticDir string     `mapstructure:"staticDir"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// GameConfig 定义了投票规则相关的配置
type GameConfig struct {
	DailyLimit       int    `mapstructure:"dailyLimit" validate:"min=1"`
	TotalCharacters  int    `mapstructure:"totalCharacters" validate:"min=2"`
	LeaderboardLimit int    `mapstructure:"leaderboardLimit" validate:"min=1"`
	Timezone         string `mapstructure:"timezone"`
	RequireTicket    bool   `mapstructure:"requireTicket"`

	// TicketSecret 为空时每次启动随机生成
	TicketSecret string     `mapstructure:"ticketSecret"`
	Seed         SeedConfig `mapstructure:"seed"`
}

// SeedConfig 定义了重新播种时使用的 fmt 模板，参数为角色ID
type SeedConfig struct {
	NameFormat  string `mapstructure:"nameFormat" validate:"required"`
	URLFormat   string `mapstructure:"urlFormat" validate:"required"`
	ImageFormat string `mapstructure:"imageFormat" validate:"required"`
}

// StorageConfig 定义了数据集存储后端的配置
type StorageConfig struct {
	Backend  string         `mapstructure:"backend" validate:"oneof=file sqlite postgres redis"`
	File     FileConfig     `mapstructure:"file"`
	Sqlite   SqliteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// FileConfig 定义了JSON文件后端的配置
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// SqliteConfig 定义了SQLite后端的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig 定义了PostgreSQL后端的配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 定义了Redis的配置。
// 除了作为存储后端，限流器和Redis投票动态也使用这里的连接。
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	Key      string `mapstructure:"key"`
}

// RateLimitConfig 定义了投票限流的配置，需要可用的Redis
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Window  time.Duration `mapstructure:"window" validate:"gt=0"`
	Max     int64         `mapstructure:"max" validate:"min=1"`
}

// HistoryConfig 定义了投票动态的配置
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BackupConfig 定义了定时把数据集备份到JSON文件的配置
type BackupConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
	Path     string        `mapstructure:"path"`
}

// LogConfig 定义了日志的配置
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// RedisConfigured 报告是否配置了Redis地址
func (c *Config) RedisConfigured() bool {
	return c.Storage.Redis.Address != ""
}

// Location 解析配置的时区，为空时使用本地时区
func (c *Config) Location() (*time.Location, error) {
	if c.Game.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Game.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", c.Game.Timezone, err)
	}
	return loc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.staticDir", "")

	v.SetDefault("game.dailyLimit", 10)
	v.SetDefault("game.totalCharacters", 20)
	v.SetDefault("game.leaderboardLimit", 20)
	v.SetDefault("game.timezone", "")
	v.SetDefault("game.requireTicket", false)
	v.SetDefault("game.ticketSecret", "")
	v.SetDefault("game.seed.nameFormat", "Good Vibe #%d")
	v.SetDefault("game.seed.urlFormat", "https://opensea.io/assets/ethereum/0xb8ea78fcacef50d41375e44e6814ebba36bb33c4/%d")
	v.SetDefault("game.seed.imageFormat", "https://ipfs.io/ipfs/QmY6JpwTYx6zZHgfJb3gPJRh1U897NX4RudtK5jhJ3sNDS/%d.jpg")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.file.path", "game_data.json")
	v.SetDefault("storage.sqlite.path", "vibeoff.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.redis.address", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key", "vibeoff:dataset")

	v.SetDefault("rateLimit.enabled", false)
	v.SetDefault("rateLimit.window", 60*time.Second)
	v.SetDefault("rateLimit.max", 30)

	v.SetDefault("history.enabled", false)

	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.interval", 10*time.Minute)
	v.SetDefault("backup.path", "backup/game_data.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在 ./config 和当前目录中查找名为 config.yaml 的文件，找不到时只使用默认值和环境变量
func LoadConfig(configFile string) (*Config, error) {
	// 0. 加载 .env (可选)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 1. 设置配置文件名和类型
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config") // 文件名 (不带扩展名)
		v.SetConfigType("yaml")   // 文件类型

		// 2. 添加配置文件搜索路径
		v.AddConfigPath("./config") // `config/config.yaml`
		v.AddConfigPath(".")        // `./config.yaml` (如果在根目录)
	}

	// 3. 设置环境变量支持
	// 允许通过环境变量覆盖配置，例如 VIBEOFF_SERVER_ADDRESS=:9000
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 5. 将配置反序列化到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 6. 校验
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 使用结构体标签以及跨字段规则校验配置
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	switch cfg.Storage.Backend {
	case BackendPostgres:
		if cfg.Storage.Postgres.DSN == "" {
			return errors.New("配置校验失败: storage.postgres.dsn 不能为空")
		}
	case BackendRedis:
		if !cfg.RedisConfigured() {
			return errors.New("配置校验失败: storage.redis.address 不能为空")
		}
	}
	if cfg.RateLimit.Enabled && !cfg.RedisConfigured() {
		return errors.New("配置校验失败: 启用 rateLimit 需要配置 storage.redis.address")
	}
	if cfg.History.Enabled && cfg.Storage.Backend == BackendFile && !cfg.RedisConfigured() {
		return errors.New("配置校验失败: 文件后端启用 history 需要配置 storage.redis.address")
	}
	if cfg.Backup.Enabled {
		if cfg.Backup.Path == "" {
			return errors.New("配置校验失败: backup.path 不能为空")
		}
		if cfg.Storage.Backend == BackendFile && cfg.Backup.Path == cfg.Storage.File.Path {
			return errors.New("配置校验失败: backup.path 不能与 storage.file.path 相同")
		}
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}
