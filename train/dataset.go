package train

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// 编码
const (
	EncodingLatin1 = "latin1"
	EncodingUTF8   = "utf8"
)

// 评分与书目 CSV 的列名
const (
	colISBN      = "ISBN"
	colTitle     = "Book-Title"
	colAuthor    = "Book-Author"
	colYear      = "Year-Of-Publication"
	colPublisher = "Publisher"
	colImageURL  = "Image-URL-L"
	colUserID    = "User-ID"
	colRating    = "Book-Rating"
)

// ErrMissingColumn 表示 CSV 表头缺少必需列
var ErrMissingColumn = errors.New("train: missing column")

// Book 是书目表中的一行。
type Book struct {
	ISBN      string
	Title     string
	Author    string
	Year      int
	Publisher string
	ImageURL  string
}

// Rating 是评分表中的一行。
type Rating struct {
	UserID string
	ISBN   string
	Rating int
}

// CSVOptions 控制 CSV 读取方式。
type CSVOptions struct {
	Delimiter rune
	Encoding  string
}

func (o CSVOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return ';'
	}
	return o.Delimiter
}

// openCSV 打开文件并按编码包装为 csv.Reader，读取表头并返回列名到下标的映射。
func openCSV(path string, opts CSVOptions) (*os.File, *csv.Reader, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	r, header, err := newCSVReader(f, opts)
	if err != nil {
		f.Close()
		return nil, nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, r, header, nil
}

func newCSVReader(src io.Reader, opts CSVOptions) (*csv.Reader, map[string]int, error) {
	// 带 UTF-8 BOM 的文件按 UTF-8 解码并去掉 BOM，否则按配置的编码
	switch opts.Encoding {
	case EncodingLatin1, "":
		src = transform.NewReader(src, unicode.BOMOverride(charmap.ISO8859_1.NewDecoder()))
	case EncodingUTF8:
		src = transform.NewReader(src, unicode.UTF8BOM.NewDecoder())
	default:
		return nil, nil, fmt.Errorf("unknown encoding %q", opts.Encoding)
	}

	r := csv.NewReader(src)
	r.Comma = opts.delimiter()
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	names, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(names))
	for i, n := range names {
		header[strings.TrimSpace(n)] = i
	}
	return r, header, nil
}

func columns(header map[string]int, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		idx, ok := header[n]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, n)
		}
		out[i] = idx
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// checkEvery 控制读取循环检查 ctx 的频率（行数）
const checkEvery = 1024

// ReadBooks 读取书目 CSV。列数不足或 ISBN/书名为空的行计入 skipped 并跳过。
// ctx 取消时中止读取并返回 ctx.Err()。
func ReadBooks(ctx context.Context, path string, opts CSVOptions) (books []Book, skipped int, err error) {
	f, r, header, err := openCSV(path, opts)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return readBooks(ctx, r, header)
}

func readBooks(ctx context.Context, r *csv.Reader, header map[string]int) ([]Book, int, error) {
	cols, err := columns(header, colISBN, colTitle, colAuthor, colYear, colPublisher, colImageURL)
	if err != nil {
		return nil, 0, err
	}
	var (
		books   []Book
		skipped int
	)
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, skipped, err
			}
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, skipped, err
		}
		b := Book{
			ISBN:      field(rec, cols[0]),
			Title:     field(rec, cols[1]),
			Author:    field(rec, cols[2]),
			Publisher: field(rec, cols[4]),
			ImageURL:  field(rec, cols[5]),
		}
		if b.ISBN == "" || b.Title == "" || len(rec) <= cols[5] {
			skipped++
			continue
		}
		b.Year, _ = strconv.Atoi(field(rec, cols[3]))
		books = append(books, b)
	}
	return books, skipped, nil
}

// ReadRatings 读取评分 CSV。评分无法解析的行计入 skipped 并跳过。
func ReadRatings(ctx context.Context, path string, opts CSVOptions) (ratings []Rating, skipped int, err error) {
	f, r, header, err := openCSV(path, opts)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return readRatings(ctx, r, header)
}

func readRatings(ctx context.Context, r *csv.Reader, header map[string]int) ([]Rating, int, error) {
	cols, err := columns(header, colUserID, colISBN, colRating)
	if err != nil {
		return nil, 0, err
	}
	var (
		ratings []Rating
		skipped int
	)
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, skipped, err
			}
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, skipped, err
		}
		v, err := strconv.Atoi(field(rec, cols[2]))
		rt := Rating{UserID: field(rec, cols[0]), ISBN: field(rec, cols[1]), Rating: v}
		if err != nil || rt.UserID == "" || rt.ISBN == "" {
			skipped++
			continue
		}
		ratings = append(ratings, rt)
	}
	return ratings, skipped, nil
}
