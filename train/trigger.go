// Package train 从原始书目与评分数据重建推荐产物。
package train

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/bookrec/artifact"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/logging"
	"github.com/rushteam/bookrec/metrics"
	"github.com/rushteam/bookrec/pkg/dsl"
)

// Options 是训练输入与参数。
type Options struct {
	BooksPath      string
	RatingsPath    string
	CSV            CSVOptions
	MinUserRatings int
	MinBookRatings int
	// Filter 为空时使用 dsl.Threshold(MinUserRatings, MinBookRatings)
	Filter string
	Metric string
}

// Trigger 同步执行训练，同一时刻只有一次训练在跑，并发调用会阻塞等待。
type Trigger struct {
	store    *artifact.Store
	opts     Options
	reloader artifact.Reloader
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu sync.Mutex
}

// Option 配置 Trigger。
type Option func(*Trigger)

// WithReloader 训练成功后调用 Reload，例如 artifact.Cache。
func WithReloader(r artifact.Reloader) Option {
	return func(t *Trigger) { t.reloader = r }
}

// WithMetrics 记录训练次数与耗时。
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Trigger) { t.metrics = m }
}

// WithLogger 替换默认 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(t *Trigger) { t.logger = l }
}

func NewTrigger(store *artifact.Store, opts Options, options ...Option) *Trigger {
	t := &Trigger{
		store:  store,
		opts:   opts,
		logger: logging.WithComponent("train"),
	}
	for _, o := range options {
		o(t)
	}
	return t
}

// Stages 返回本次训练的阶段列表。过滤表达式编译失败时返回错误。
func (t *Trigger) Stages() ([]Stage, error) {
	expr := t.opts.Filter
	if expr == "" {
		expr = dsl.Threshold(t.opts.MinUserRatings, t.opts.MinBookRatings)
	}
	filter, err := dsl.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", expr, err)
	}
	return []Stage{
		&Ingest{BooksPath: t.opts.BooksPath, RatingsPath: t.opts.RatingsPath, CSV: t.opts.CSV},
		&Validate{},
		&TransformStage{MinUserRatings: t.opts.MinUserRatings, Filter: filter},
		&Fit{Metric: t.opts.Metric},
		&Save{Store: t.store},
	}, nil
}

// Train 执行一次完整训练。任一阶段失败都返回 TrainingFailed；
// 保存之前失败时已有产物保持不变。
func (t *Trigger) Train(ctx context.Context) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	logger := t.logger.With().Str("run_id", runID).Logger()
	ctx = logging.ContextWithLogger(ctx, logger)

	defer func() {
		t.metrics.ObserveTraining(start, err)
		if err != nil {
			logger.Error().Err(err).Dur("took", time.Since(start)).Msg("training failed")
			return
		}
		logger.Info().Dur("took", time.Since(start)).Msg("training finished")
	}()

	stages, err := t.Stages()
	if err != nil {
		return core.TrainingFailed(err)
	}

	st := &State{RunID: runID}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return core.TrainingFailed(err)
		}
		stageStart := time.Now()
		if err := s.Run(ctx, st); err != nil {
			return core.TrainingFailed(fmt.Errorf("stage %s: %w", s.Name(), err))
		}
		logger.Debug().Str("stage", s.Name()).Dur("took", time.Since(stageStart)).Msg("stage done")
	}

	if t.reloader != nil {
		if err := t.reloader.Reload(ctx); err != nil {
			return core.TrainingFailed(fmt.Errorf("reload: %w", err))
		}
	}
	return nil
}
