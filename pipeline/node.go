package pipeline

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// Kind 标记 Node 所处阶段，用于日志与配置校验。
type Kind string

const (
	KindRecall      Kind = "recall"      // 从近邻索引生成候选，必须是第一个 Node
	KindPostProcess Kind = "postprocess" // 补充封面等展示信息
	KindReRank      Kind = "rerank"      // 剔除查询书、截断
)

// Node 接收上一步的候选列表并返回新的列表。
// 返回错误时 Pipeline 立即中止；Node 可以原地修改 items 中的 Item。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
