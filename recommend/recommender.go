// Package recommend 把产物加载与推荐 Pipeline 组合成对外的查询入口。
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/bookrec/artifact"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/logging"
	"github.com/rushteam/bookrec/metrics"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/postprocess"
	"github.com/rushteam/bookrec/recall"
	"github.com/rushteam/bookrec/rerank"
)

// Result 是一次查询的结果，Titles 与 ImageURLs 按位置一一对应，按距离升序。
type Result struct {
	Query     string
	Titles    []string
	ImageURLs []string
	Items     []*core.Item
}

// Recommender 对单个书名返回相似书。
type Recommender struct {
	loader   artifact.Loader
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// Option 配置 Recommender。
type Option func(*Recommender)

// WithPipeline 替换默认链路，例如由 YAML 构建的 Pipeline。
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(r *Recommender) { r.pipeline = p }
}

// WithMetrics 记录查询次数与耗时。
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recommender) { r.metrics = m }
}

// WithLogger 替换默认 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(r *Recommender) { r.logger = l }
}

// New 创建 Recommender；默认链路为 k=6、drop_first，等价于 DefaultPipeline(6, "drop_first")。
func New(loader artifact.Loader, opts ...Option) *Recommender {
	def := &core.DefaultRecommendConfig{}
	p, _ := DefaultPipeline(def.DefaultNeighbors(), def.DefaultExcludePolicy())
	r := &Recommender{
		loader:   loader,
		pipeline: p,
		logger:   logging.WithComponent("recommend"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultPipeline 构建内置链路：KNN 召回 -> 封面补充 -> 剔除查询书 -> 截断为 neighbors-1。
// 封面补充放在剔除之前，和查询书同批查找，任一缺图都让请求失败。
func DefaultPipeline(neighbors int, policy string) (*pipeline.Pipeline, error) {
	if neighbors < 2 {
		return nil, fmt.Errorf("neighbors must be >= 2, got %d", neighbors)
	}
	exclude := rerank.ForPolicy(policy)
	if exclude == nil {
		return nil, fmt.Errorf("unknown exclude policy %q", policy)
	}
	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.KNN{Neighbors: neighbors},
			&postprocess.ImageNode{},
			exclude,
			&rerank.TopNNode{N: neighbors - 1},
		},
	}, nil
}

// Recommend 返回与 title 最相似的书名与封面 URL。
// 书名精确匹配；产物缺失或损坏、书名未知、封面缺失时返回对应的 *core.Error，不返回部分结果。
func (r *Recommender) Recommend(ctx context.Context, title string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveRecommend(start, err)
		if err != nil {
			// 错误由调用方在边界统一记录
			r.logger.Debug().Err(err).Str("kind", string(core.KindOf(err))).
				Str("title", title).Dur("took", time.Since(start)).Msg("recommend failed")
			return
		}
		r.logger.Debug().Str("title", title).Int("results", len(res.Titles)).
			Dur("took", time.Since(start)).Msg("recommend")
	}()

	snap, err := r.loader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{Title: title, Snapshot: snap}
	items, err := r.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Query:     title,
		Titles:    make([]string, len(items)),
		ImageURLs: make([]string, len(items)),
		Items:     items,
	}
	for i, it := range items {
		res.Titles[i] = it.Title
		res.ImageURLs[i] = it.ImageURL
	}
	return res, nil
}

// Titles 返回可查询的书名列表，读自单独维护的书名产物，与矩阵行是否已加载无关。
func (r *Recommender) Titles(ctx context.Context) ([]string, error) {
	names, err := r.loader.BookNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}
