package core

import "github.com/rushteam/bookrec/pkg/utils"

// RecommendContext 是一次查询的上下文，贯穿整个 Pipeline。
type RecommendContext struct {
	// Title 是查询书名，精确匹配，不做大小写折叠
	Title string

	// Snapshot 是本次查询读到的产物，同一次查询内不会变化
	Snapshot *Snapshot

	// Labels 请求级标签
	Labels utils.Labels

	// Params 请求级参数，例如 neighbors 覆盖值
	Params map[string]any
}

func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	rctx.Labels.Put(key, lbl)
}

func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	return rctx.Labels.Get(key)
}
