package core

import (
	"errors"
	"fmt"
)

// ErrInvalidMatrix 表示矩阵形状不合法（行列数不一致、书名重复等）。
var ErrInvalidMatrix = errors.New("invalid rating matrix")

// RatingMatrix 是透视后的评分矩阵：每行一本书，每列一个用户，缺失评分填 0。
// 行顺序即行号，是近邻索引返回的标识；同一次构建内书名到行号的映射稳定不变。
type RatingMatrix struct {
	Titles []string    `json:"titles"`
	Users  []string    `json:"users"`
	Values [][]float64 `json:"values"`

	rows map[string]int
}

// NewRatingMatrix 校验形状并建立书名到行号的映射。
func NewRatingMatrix(titles, users []string, values [][]float64) (*RatingMatrix, error) {
	m := &RatingMatrix{Titles: titles, Users: users, Values: values}
	if err := m.index(); err != nil {
		return nil, err
	}
	return m, nil
}

// index 在加载时构建一次 title -> row 映射，查询时 O(1)。
func (m *RatingMatrix) index() error {
	if len(m.Titles) != len(m.Values) {
		return fmt.Errorf("%w: %d titles but %d rows", ErrInvalidMatrix, len(m.Titles), len(m.Values))
	}
	m.rows = make(map[string]int, len(m.Titles))
	for i, title := range m.Titles {
		if len(m.Values[i]) != len(m.Users) {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(m.Values[i]), len(m.Users))
		}
		if _, dup := m.rows[title]; dup {
			return fmt.Errorf("%w: duplicate title %q", ErrInvalidMatrix, title)
		}
		m.rows[title] = i
	}
	return nil
}

// Rebuild 在反序列化后重新校验并建立映射。
func (m *RatingMatrix) Rebuild() error {
	return m.index()
}

// Len 返回行数（书的数量）。
func (m *RatingMatrix) Len() int { return len(m.Titles) }

// RowIndex 精确匹配书名，返回行号。
func (m *RatingMatrix) RowIndex(title string) (int, bool) {
	row, ok := m.rows[title]
	return row, ok
}

// Row 返回第 i 行的评分向量（共享底层数组，调用方不要修改）。
func (m *RatingMatrix) Row(i int) []float64 { return m.Values[i] }

// Title 返回第 i 行的书名。
func (m *RatingMatrix) Title(i int) string { return m.Titles[i] }
