package recall

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// Source 表示一个可复用的召回源。
// 返回按相似度排好序的候选，调用方据此决定是否组合多个来源。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// Recall 实现 Source 接口，便于在 Pipeline 之外单独使用 KNN。
func (r *KNN) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	return r.Process(ctx, rctx, nil)
}

var _ Source = (*KNN)(nil)
