package core

// RatingRow 是过滤后的一条 (用户, 书) 评分记录，附带书的元数据。
type RatingRow struct {
	UserID     string  `json:"user_id"`
	ISBN       string  `json:"isbn"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Year       int     `json:"year"`
	Publisher  string  `json:"publisher"`
	ImageURL   string  `json:"image_url"`
	Rating     float64 `json:"rating"`
	NumRatings int     `json:"num_of_rating"`
}

// RatingsTable 用于把书名解析成封面 URL。
// 同一书名有多行时取第一行。
type RatingsTable struct {
	Rows []RatingRow `json:"rows"`

	images map[string]string
}

func NewRatingsTable(rows []RatingRow) *RatingsTable {
	t := &RatingsTable{Rows: rows}
	t.Rebuild()
	return t
}

// Rebuild 建立 title -> 第一条记录的 image_url 映射。
func (t *RatingsTable) Rebuild() {
	t.images = make(map[string]string, len(t.Rows))
	for _, r := range t.Rows {
		if _, ok := t.images[r.Title]; !ok {
			t.images[r.Title] = r.ImageURL
		}
	}
}

// Len 返回记录数。
func (t *RatingsTable) Len() int { return len(t.Rows) }

// ImageURL 返回第一条匹配记录的封面 URL；没有任何记录匹配时 ok 为 false。
func (t *RatingsTable) ImageURL(title string) (string, bool) {
	url, ok := t.images[title]
	return url, ok
}
