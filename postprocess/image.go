package postprocess

import (
	"context"
	"errors"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
)

// ErrNoSnapshot 表示 RecommendContext 没有携带产物快照
var ErrNoSnapshot = errors.New("postprocess: recommend context has no snapshot")

// ImageNode 为每个候选补充封面 URL。
// 评分表中同名书取第一条记录；任一候选找不到记录时整个请求失败，不返回缺图的部分结果。
type ImageNode struct{}

func (n *ImageNode) Name() string        { return "postprocess.image" }
func (n *ImageNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *ImageNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Snapshot == nil {
		return nil, ErrNoSnapshot
	}
	table := rctx.Snapshot.Table
	for _, it := range items {
		url, ok := table.ImageURL(it.Title)
		if !ok {
			return nil, core.ImageLookupFailed(it.Title)
		}
		it.ImageURL = url
		it.PutLabel("image_source", utils.Label{Value: "ratings_table", Source: "postprocess"})
	}
	return items, nil
}
