package core

// RecommendConfig 是推荐相关的配置接口，用于提供默认值。
type RecommendConfig interface {
	// DefaultNeighbors 返回默认近邻数（包含查询书本身）
	DefaultNeighbors() int

	// DefaultMetric 返回默认距离度量
	DefaultMetric() string

	// DefaultExcludePolicy 返回默认的查询书剔除策略
	DefaultExcludePolicy() string
}

// 剔除策略
const (
	// PolicyDropFirst 无条件丢弃第 0 个近邻（默认）
	PolicyDropFirst = "drop_first"
	// PolicyExcludeQuery 丢弃书名与查询相同的近邻
	PolicyExcludeQuery = "exclude_query"
)

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultNeighbors() int {
	return 6
}

func (c *DefaultRecommendConfig) DefaultMetric() string {
	return MetricEuclidean
}

func (c *DefaultRecommendConfig) DefaultExcludePolicy() string {
	return PolicyDropFirst
}
