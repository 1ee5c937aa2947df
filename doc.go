// Package bookrec 是一个基于评分矩阵近邻检索的相似书推荐服务。
//
// 设计要点：
// - Artifact-first: 训练产出评分矩阵、近邻索引、评分表、书名列表四份产物，查询只读产物
// - Pipeline-first: 查询逻辑通过 Node 串联（Recall → PostProcess → ReRank）
// - 显式加载: 产物由 artifact.Store 读取，是否缓存由调用方选择（Fresh / Cache / Watcher）
package bookrec

import (
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// 轻量 facade：便于用户直接 import "bookrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind
type Error = core.Error

const (
	KindRecall      = pipeline.KindRecall
	KindPostProcess = pipeline.KindPostProcess
	KindReRank      = pipeline.KindReRank
)
