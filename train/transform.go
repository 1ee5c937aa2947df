package train

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/dsl"
)

// Filter 决定哪些评分记录进入评分矩阵。
type Filter interface {
	Match(v dsl.Vars) (bool, error)
}

// Transform 把原始书目与评分转换为评分表与评分矩阵。
//
// 步骤：
//  1. 统计每个用户的评分数 user_ratings
//  2. 评分按 ISBN 关联书目，书目中不存在的 ISBN 丢弃
//  3. 统计每本书（按书名）来自活跃用户（user_ratings > minUserRatings）的评分数 book_ratings
//  4. 按 filter 过滤
//  5. 同一 (用户, 书名) 只保留第一条
//  6. 透视为矩阵：行按书名排序，列按用户排序，缺失填 0
func Transform(books []Book, ratings []Rating, minUserRatings int, filter Filter) ([]core.RatingRow, *core.RatingMatrix, error) {
	userCount := make(map[string]int)
	for _, r := range ratings {
		userCount[r.UserID]++
	}

	byISBN := make(map[string]*Book, len(books))
	for i := range books {
		if _, ok := byISBN[books[i].ISBN]; !ok {
			byISBN[books[i].ISBN] = &books[i]
		}
	}

	type joined struct {
		rating Rating
		book   *Book
	}
	rows := make([]joined, 0, len(ratings))
	bookCount := make(map[string]int)
	for _, r := range ratings {
		b, ok := byISBN[r.ISBN]
		if !ok {
			continue
		}
		rows = append(rows, joined{rating: r, book: b})
		if userCount[r.UserID] > minUserRatings {
			bookCount[b.Title]++
		}
	}

	type pair struct{ user, title string }
	seen := make(map[pair]bool)
	out := make([]core.RatingRow, 0)
	for _, j := range rows {
		ok, err := filter.Match(dsl.Vars{
			UserRatings: userCount[j.rating.UserID],
			BookRatings: bookCount[j.book.Title],
			Rating:      j.rating.Rating,
			Year:        j.book.Year,
		})
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		key := pair{j.rating.UserID, j.book.Title}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, core.RatingRow{
			UserID:     j.rating.UserID,
			ISBN:       j.book.ISBN,
			Title:      j.book.Title,
			Author:     j.book.Author,
			Year:       j.book.Year,
			Publisher:  j.book.Publisher,
			ImageURL:   j.book.ImageURL,
			Rating:     float64(j.rating.Rating),
			NumRatings: bookCount[j.book.Title],
		})
	}
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("no ratings left after filtering")
	}

	m, err := Pivot(out)
	if err != nil {
		return nil, nil, err
	}
	return out, m, nil
}

// Pivot 把评分记录透视为书名 x 用户的矩阵，同一格多条记录时取第一条。
func Pivot(rows []core.RatingRow) (*core.RatingMatrix, error) {
	titleSet := make(map[string]struct{})
	userSet := make(map[string]struct{})
	for _, r := range rows {
		titleSet[r.Title] = struct{}{}
		userSet[r.UserID] = struct{}{}
	}
	titles := sortedKeys(titleSet)
	users := sortedKeys(userSet)
	sortUsers(users)

	titleIdx := indexOf(titles)
	userIdx := indexOf(users)

	values := make([][]float64, len(titles))
	filled := make([][]bool, len(titles))
	for i := range values {
		values[i] = make([]float64, len(users))
		filled[i] = make([]bool, len(users))
	}
	for _, r := range rows {
		ti, ui := titleIdx[r.Title], userIdx[r.UserID]
		if filled[ti][ui] {
			continue
		}
		values[ti][ui] = float64(r.Rating)
		filled[ti][ui] = true
	}
	return core.NewRatingMatrix(titles, users, values)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// sortUsers 用户 ID 全是整数时按数值排序，否则保持字典序。
func sortUsers(users []string) {
	nums := make([]int64, len(users))
	for i, u := range users {
		n, err := strconv.ParseInt(u, 10, 64)
		if err != nil {
			return
		}
		nums[i] = n
	}
	sort.Sort(byNum{users, nums})
}

type byNum struct {
	s []string
	n []int64
}

func (b byNum) Len() int           { return len(b.s) }
func (b byNum) Less(i, j int) bool { return b.n[i] < b.n[j] }
func (b byNum) Swap(i, j int) {
	b.s[i], b.s[j] = b.s[j], b.s[i]
	b.n[i], b.n[j] = b.n[j], b.n[i]
}

func indexOf(s []string) map[string]int {
	m := make(map[string]int, len(s))
	for i, v := range s {
		m[v] = i
	}
	return m
}
