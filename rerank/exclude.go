package rerank

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
)

// DropFirst 无条件丢弃第 0 个候选。
//
// 正常情况下第 0 个就是查询书本身（距离 0）。但当多本书的评分向量完全相同时，
// 行扫描顺序更靠前的另一本书可能排在第 0 位：此时丢掉的是那本书，查询书会留在结果里。
// 需要严格剔除查询书时使用 ExcludeQuery。
type DropFirst struct{}

func (n *DropFirst) Name() string        { return "rerank.drop_first" }
func (n *DropFirst) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *DropFirst) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx != nil {
		rctx.PutLabel("exclude_policy", utils.Label{Value: core.PolicyDropFirst, Source: "rerank"})
	}
	if len(items) == 0 {
		return items, nil
	}
	return items[1:], nil
}

// ExcludeQuery 丢弃书名与查询相同的候选。
// 查询书不在候选中时（近邻全部距离相同且数量不足以覆盖它）丢弃最后一个，
// 保证结果数量与 DropFirst 一致。
type ExcludeQuery struct{}

func (n *ExcludeQuery) Name() string        { return "rerank.exclude_query" }
func (n *ExcludeQuery) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *ExcludeQuery) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	query := ""
	if rctx != nil {
		query = rctx.Title
		rctx.PutLabel("exclude_policy", utils.Label{Value: core.PolicyExcludeQuery, Source: "rerank"})
	}

	drop := len(items) - 1
	for i, it := range items {
		if it.Title == query {
			drop = i
			break
		}
	}

	out := make([]*core.Item, 0, len(items)-1)
	out = append(out, items[:drop]...)
	return append(out, items[drop+1:]...), nil
}

// ForPolicy 返回策略对应的剔除节点，未知策略返回 nil。
func ForPolicy(policy string) pipeline.Node {
	switch policy {
	case core.PolicyDropFirst, "":
		return &DropFirst{}
	case core.PolicyExcludeQuery:
		return &ExcludeQuery{}
	default:
		return nil
	}
}
