package bookrec

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rushteam/bookrec/artifact"
	"github.com/rushteam/bookrec/config"
	_ "github.com/rushteam/bookrec/config/builders"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/logging"
	"github.com/rushteam/bookrec/metrics"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/recommend"
	"github.com/rushteam/bookrec/store"
	"github.com/rushteam/bookrec/train"
)

// backendNamespace 是共享存储（redis / badger）中的 key 命名空间
const backendNamespace = "bookrec:"

// App 是按配置组装好的推荐服务。
type App struct {
	Config      *config.App
	Backend     core.Store
	Artifacts   *artifact.Store
	Loader      artifact.Loader
	Recommender *recommend.Recommender
	Trainer     *train.Trigger
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry

	watcher *artifact.Watcher
}

// OpenBackend 按配置创建存储后端。
func OpenBackend(cfg config.StorageConfig) (core.Store, error) {
	switch cfg.Backend {
	case "file", "":
		return store.NewFileStore(cfg.Dir)
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, backendNamespace)
	case "badger":
		return store.OpenBadgerStore(cfg.BadgerDir, backendNamespace)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// BuildPipeline 构建查询链路：配置了 YAML 时从文件构建，否则使用内置链路。
func BuildPipeline(cfg config.RecommendConfig) (*pipeline.Pipeline, error) {
	if cfg.Pipeline != "" {
		return config.LoadPipeline(cfg.Pipeline)
	}
	return recommend.DefaultPipeline(cfg.Neighbors, cfg.Policy)
}

// Open 组装 App。ctx 用于 Watcher 的生命周期，结束后停止监听。
func Open(ctx context.Context, cfg *config.App) (*App, error) {
	backend, err := OpenBackend(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	keys := artifact.DefaultKeys(cfg.Storage.Prefix)
	arts := artifact.NewStore(backend, artifact.WithKeys(keys), artifact.WithMetrics(m))

	app := &App{
		Config:    cfg,
		Backend:   backend,
		Artifacts: arts,
		Metrics:   m,
		Registry:  reg,
	}

	p, err := BuildPipeline(cfg.Recommend)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	var trainOpts []train.Option
	trainOpts = append(trainOpts, train.WithMetrics(m))

	if cfg.Recommend.Cache {
		cache := artifact.NewCache(arts)
		app.Loader = cache
		trainOpts = append(trainOpts, train.WithReloader(cache))

		if cfg.Recommend.Watch {
			fs, ok := backend.(*store.FileStore)
			if !ok {
				backend.Close()
				return nil, errors.New("recommend.watch requires the file storage backend")
			}
			w, err := artifact.NewWatcher(fs.Dir(), keys, cache)
			if err != nil {
				backend.Close()
				return nil, fmt.Errorf("create watcher: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				w.Close()
				backend.Close()
				return nil, fmt.Errorf("start watcher: %w", err)
			}
			app.watcher = w
		}
	} else {
		app.Loader = &artifact.Fresh{Store: arts}
	}

	app.Recommender = recommend.New(app.Loader, recommend.WithPipeline(p), recommend.WithMetrics(m))
	app.Trainer = train.NewTrigger(arts, TrainOptions(cfg.Train), trainOpts...)

	logging.Info().
		Str("backend", backend.Name()).
		Str("prefix", cfg.Storage.Prefix).
		Strs("pipeline", p.Names()).
		Bool("cache", cfg.Recommend.Cache).
		Bool("watch", app.watcher != nil).
		Msg("bookrec ready")
	return app, nil
}

// TrainOptions 把训练配置转换为 train.Options。
func TrainOptions(cfg config.TrainConfig) train.Options {
	var delim rune
	if cfg.Delimiter != "" {
		delim = []rune(cfg.Delimiter)[0]
	}
	return train.Options{
		BooksPath:      cfg.Books,
		RatingsPath:    cfg.Ratings,
		CSV:            train.CSVOptions{Delimiter: delim, Encoding: cfg.Encoding},
		MinUserRatings: cfg.MinUserRatings,
		MinBookRatings: cfg.MinBookRatings,
		Filter:         cfg.Filter,
		Metric:         cfg.Metric,
	}
}

// Close 停止监听并关闭存储。
func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	errs = append(errs, a.Backend.Close())
	return errors.Join(errs...)
}
