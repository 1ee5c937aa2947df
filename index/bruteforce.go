package index

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/bookrec/core"
)

var (
	// ErrDimensionMismatch 表示查询向量与索引行维度不一致
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")
	// ErrInvalidK 表示近邻数不合法
	ErrInvalidK = errors.New("index: k must be greater than 0")
	// ErrUnknownMetric 表示距离度量不支持
	ErrUnknownMetric = errors.New("index: unknown metric")
)

// BruteForce 是暴力扫描的近邻索引，对每次查询计算与所有行的距离。
// 书的数量在千级，暴力扫描足够；行数据在构建时拷贝，之后不可变。
//
// 特点：
//   - 支持欧氏距离（默认）、曼哈顿距离、余弦距离
//   - 结果按距离升序，距离相同按行号升序（即行扫描顺序）
//   - 线程安全（只读）
type BruteForce struct {
	MetricName string      `json:"metric"`
	Dimension  int         `json:"dimension"`
	Rows       [][]float64 `json:"rows"`
}

// NewBruteForce 在矩阵的所有行上构建索引。
func NewBruteForce(metric string, rows [][]float64) (*BruteForce, error) {
	if metric == "" {
		metric = core.MetricEuclidean
	}
	if !core.ValidateMetric(metric) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	idx := &BruteForce{MetricName: metric}
	if len(rows) > 0 {
		idx.Dimension = len(rows[0])
	}
	idx.Rows = make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != idx.Dimension {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimensionMismatch, i, len(row), idx.Dimension)
		}
		idx.Rows[i] = append([]float64(nil), row...)
	}
	return idx, nil
}

// Fit 是 NewBruteForce 针对评分矩阵的快捷方式。
func Fit(metric string, m *core.RatingMatrix) (*BruteForce, error) {
	return NewBruteForce(metric, m.Values)
}

// Validate 检查反序列化得到的索引是否自洽。
func (b *BruteForce) Validate() error {
	if !core.ValidateMetric(b.MetricName) {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, b.MetricName)
	}
	for i, row := range b.Rows {
		if len(row) != b.Dimension {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimensionMismatch, i, len(row), b.Dimension)
		}
	}
	return nil
}

func (b *BruteForce) Metric() string { return b.MetricName }

func (b *BruteForce) Len() int { return len(b.Rows) }

// KNeighbors 实现 core.NeighborIndex 接口
func (b *BruteForce) KNeighbors(query []float64, k int) ([]core.Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != b.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), b.Dimension)
	}
	dist := distanceFunc(b.MetricName)
	if dist == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, b.MetricName)
	}

	neighbors := make([]core.Neighbor, len(b.Rows))
	for i, row := range b.Rows {
		neighbors[i] = core.Neighbor{Row: i, Distance: dist(query, row)}
	}

	// 稳定排序保证距离相同时保留行扫描顺序
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}

func distanceFunc(metric string) func(a, b []float64) float64 {
	switch metric {
	case core.MetricEuclidean:
		return euclideanDistance
	case core.MetricManhattan:
		return manhattanDistance
	case core.MetricCosine:
		return cosineDistance
	default:
		return nil
	}
}

// euclideanDistance 计算欧氏距离
func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// manhattanDistance 计算曼哈顿距离
func manhattanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// cosineDistance 计算余弦距离（1 - 余弦相似度），零向量与任何向量的相似度视为 0
func cosineDistance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// 确保实现了接口
var _ core.NeighborIndex = (*BruteForce)(nil)
