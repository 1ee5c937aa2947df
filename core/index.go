package core

// 距离度量
const (
	MetricEuclidean = "euclidean"
	MetricManhattan = "manhattan"
	MetricCosine    = "cosine"
)

// ValidateMetric 检查距离度量是否合法
func ValidateMetric(metric string) bool {
	switch metric {
	case MetricEuclidean, MetricManhattan, MetricCosine:
		return true
	default:
		return false
	}
}

// Neighbor 是一次近邻查询的单个结果。
type Neighbor struct {
	Row      int
	Distance float64
}

// NeighborIndex 是近邻索引的领域接口。
// 构建后不可变；KNeighbors 按距离升序返回，距离相同按行号升序。
type NeighborIndex interface {
	// Metric 返回距离度量
	Metric() string

	// Len 返回索引的行数
	Len() int

	// KNeighbors 返回距离 query 最近的 k 行，k 超过行数时截断为行数
	KNeighbors(query []float64, k int) ([]Neighbor, error)
}
