package core

import "github.com/rushteam/bookrec/pkg/utils"

// Item 是推荐链路中的一个候选书。
// Row 是评分矩阵行号，Distance 越小越相似，Labels 记录各 Node 的处理痕迹。
type Item struct {
	Title    string
	Row      int
	Distance float64
	ImageURL string
	Labels   utils.Labels
}

func NewItem(title string, row int) *Item {
	return &Item{Title: title, Row: row}
}

// PutLabel 写入 Label；同名 key 按 utils.MergeLabel 累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	it.Labels.Put(key, lbl)
}
