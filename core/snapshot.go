package core

import "time"

// Snapshot 是一组一致的、只读的产物：评分矩阵、近邻索引、评分表。
type Snapshot struct {
	Matrix   *RatingMatrix
	Index    NeighborIndex
	Table    *RatingsTable
	LoadedAt time.Time
}
