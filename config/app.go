package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/bookrec/core"
)

// DefaultConfigPaths 按优先级列出配置文件搜索路径，使用找到的第一个。
var DefaultConfigPaths = []string{
	"bookrec.yaml",
	"config/bookrec.yaml",
}

// ConfigPathEnvVar 指定配置文件路径的环境变量。
const ConfigPathEnvVar = "BOOKREC_CONFIG"

// EnvPrefix 是配置覆盖环境变量的前缀：BOOKREC_STORAGE_DIR -> storage.dir
const EnvPrefix = "BOOKREC_"

// App 是进程级配置。
type App struct {
	Storage   StorageConfig   `koanf:"storage"`
	Recommend RecommendConfig `koanf:"recommend"`
	Train     TrainConfig     `koanf:"train"`
	Logging   LoggingConfig   `koanf:"logging"`
	Server    ServerConfig    `koanf:"server"`
}

// StorageConfig 决定产物存放位置。
type StorageConfig struct {
	// Backend: file / memory / redis / badger
	Backend   string `koanf:"backend" validate:"oneof=file memory redis badger"`
	Dir       string `koanf:"dir" validate:"required_if=Backend file"`
	Prefix    string `koanf:"prefix"`
	RedisAddr string `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int    `koanf:"redis_db" validate:"gte=0"`
	// BadgerDir 为空时使用内存模式
	BadgerDir string `koanf:"badger_dir"`
}

// RecommendConfig 是查询侧配置。
type RecommendConfig struct {
	// Neighbors 近邻数（含查询书本身），结果数 = Neighbors - 1
	Neighbors int    `koanf:"neighbors" validate:"gte=2"`
	Policy    string `koanf:"policy" validate:"oneof=drop_first exclude_query"`
	// Cache 为 true 时进程内缓存快照，训练成功后重载
	Cache bool `koanf:"cache"`
	// Watch 为 true 时监听 file 后端目录，产物变化后自动重载（需 Cache）
	Watch bool `koanf:"watch"`
	// Pipeline 可选的 Pipeline YAML 路径，为空时使用内置链路
	Pipeline string `koanf:"pipeline"`
}

// TrainConfig 是训练流程配置。
type TrainConfig struct {
	Books     string `koanf:"books" validate:"required"`
	Ratings   string `koanf:"ratings" validate:"required"`
	Delimiter string `koanf:"delimiter" validate:"len=1"`
	// Encoding: latin1 / utf8
	Encoding       string `koanf:"encoding" validate:"oneof=latin1 utf8"`
	MinUserRatings int    `koanf:"min_user_ratings" validate:"gte=0"`
	MinBookRatings int    `koanf:"min_book_ratings" validate:"gte=0"`
	// Filter 为空时由 MinUserRatings / MinBookRatings 生成
	Filter string `koanf:"filter"`
	Metric string `koanf:"metric" validate:"oneof=euclidean manhattan cosine"`
}

// LoggingConfig 日志配置。
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr         string        `koanf:"addr" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	// TrainTimeout 限制 POST /v1/train 单次训练时长
	TrainTimeout time.Duration `koanf:"train_timeout" validate:"gte=0"`
}

// Default 返回默认配置；先加载默认值，再由配置文件与环境变量覆盖。
func Default() *App {
	rc := core.DefaultRecommendConfig{}
	return &App{
		Storage: StorageConfig{
			Backend: "file",
			Dir:     "artifacts",
		},
		Recommend: RecommendConfig{
			Neighbors: rc.DefaultNeighbors(),
			Policy:    rc.DefaultExcludePolicy(),
		},
		Train: TrainConfig{
			Books:          "data/BX-Books.csv",
			Ratings:        "data/BX-Book-Ratings.csv",
			Delimiter:      ";",
			Encoding:       "latin1",
			MinUserRatings: 200,
			MinBookRatings: 50,
			Metric:         rc.DefaultMetric(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			TrainTimeout: 30 * time.Minute,
		},
	}
}

// Load 分层加载配置：默认值 -> 配置文件（可选）-> BOOKREC_ 环境变量。
// path 为空时按 BOOKREC_CONFIG 与 DefaultConfigPaths 查找。
func Load(path string) (*App, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &App{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sections 是可由环境变量覆盖的一级配置段。
var sections = []string{"storage", "recommend", "train", "logging", "server"}

// envTransformFunc: BOOKREC_STORAGE_REDIS_ADDR -> storage.redis_addr
// 只切分第一段，字段名内的下划线保留；不属于已知配置段的变量忽略。
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	for _, s := range sections {
		if rest, ok := strings.CutPrefix(key, s+"_"); ok && rest != "" {
			return s + "." + rest
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验字段取值，返回所有不合法字段。
func (c *App) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// App 实现 core.RecommendConfig，供推荐链路读取默认值。
func (c *App) DefaultNeighbors() int        { return c.Recommend.Neighbors }
func (c *App) DefaultMetric() string        { return c.Train.Metric }
func (c *App) DefaultExcludePolicy() string { return c.Recommend.Policy }

var _ core.RecommendConfig = (*App)(nil)
