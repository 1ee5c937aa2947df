// Package builders 注册内置 Node 的配置构建器，使用时匿名导入即可。
package builders

import (
	"fmt"

	"github.com/rushteam/bookrec/config"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/conv"
	"github.com/rushteam/bookrec/postprocess"
	"github.com/rushteam/bookrec/recall"
	"github.com/rushteam/bookrec/rerank"
)

func init() {
	config.Register("recall.knn", BuildKNNNode)
	config.Register("postprocess.image", BuildImageNode)
	config.Register("rerank.drop_first", BuildDropFirstNode)
	config.Register("rerank.exclude_query", BuildExcludeQueryNode)
	config.Register("rerank.exclude", BuildExcludeNode)
	config.Register("rerank.topn", BuildTopNNode)
}

func BuildKNNNode(cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt(cfg, "neighbors", 0)
	if n < 0 {
		return nil, fmt.Errorf("neighbors must be >= 0, got %d", n)
	}
	return &recall.KNN{Neighbors: n}, nil
}

func BuildImageNode(map[string]any) (pipeline.Node, error) {
	return &postprocess.ImageNode{}, nil
}

func BuildDropFirstNode(map[string]any) (pipeline.Node, error) {
	return &rerank.DropFirst{}, nil
}

func BuildExcludeQueryNode(map[string]any) (pipeline.Node, error) {
	return &rerank.ExcludeQuery{}, nil
}

// BuildExcludeNode 按 config.policy 选择剔除策略，缺省为 drop_first。
func BuildExcludeNode(cfg map[string]any) (pipeline.Node, error) {
	policy := conv.ConfigGet(cfg, "policy", "")
	node := rerank.ForPolicy(policy)
	if node == nil {
		return nil, fmt.Errorf("unknown exclude policy %q", policy)
	}
	return node, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt(cfg, "n", 0)
	if n < 0 {
		return nil, fmt.Errorf("n must be >= 0, got %d", n)
	}
	return &rerank.TopNNode{N: n}, nil
}
