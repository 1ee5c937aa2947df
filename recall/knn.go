package recall

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/conv"
	"github.com/rushteam/bookrec/pkg/utils"
)

// ErrNoSnapshot 表示 RecommendContext 没有携带产物快照
var ErrNoSnapshot = errors.New("recall: recommend context has no snapshot")

// KNN 是基于评分矩阵行向量的近邻召回。
// 查询书本身通常是自己的最近邻（距离 0），因此结果包含查询书，由后续 ReRank 负责剔除。
type KNN struct {
	// Neighbors 近邻数，包含查询书本身；<= 0 时使用默认值 6
	// 超过矩阵行数时截断为行数
	Neighbors int
}

func (r *KNN) Name() string        { return "recall.knn" }
func (r *KNN) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *KNN) neighbors(rctx *core.RecommendContext) int {
	if n, ok := conv.ToInt(rctx.Params["neighbors"]); ok && n > 0 {
		return n
	}
	if r.Neighbors > 0 {
		return r.Neighbors
	}
	return (&core.DefaultRecommendConfig{}).DefaultNeighbors()
}

func (r *KNN) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Snapshot == nil {
		return nil, ErrNoSnapshot
	}
	snap := rctx.Snapshot

	// 1. 精确匹配书名 -> 行号
	row, ok := snap.Matrix.RowIndex(rctx.Title)
	if !ok {
		return nil, core.UnknownTitle(rctx.Title)
	}

	// 2. 以该行为查询向量做近邻查询
	neighbors, err := snap.Index.KNeighbors(snap.Matrix.Row(row), r.neighbors(rctx))
	if err != nil {
		return nil, core.ArtifactCorrupt("neighbor_index", err)
	}

	// 3. 行号 -> 书名，保持距离顺序
	out := make([]*core.Item, 0, len(neighbors))
	for rank, n := range neighbors {
		if n.Row < 0 || n.Row >= snap.Matrix.Len() {
			return nil, core.ArtifactCorrupt("neighbor_index",
				fmt.Errorf("neighbor row %d out of range [0,%d)", n.Row, snap.Matrix.Len()))
		}
		it := core.NewItem(snap.Matrix.Title(n.Row), n.Row)
		it.Distance = n.Distance
		it.PutLabel("recall_source", utils.Label{Value: "knn", Source: "recall"})
		it.PutLabel("knn_metric", utils.Label{Value: snap.Index.Metric(), Source: "recall"})
		it.PutLabel("knn_rank", utils.Label{Value: strconv.Itoa(rank), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
