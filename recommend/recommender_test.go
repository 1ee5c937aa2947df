package recommend

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/rushteam/bookrec/artifact"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/index"
	"github.com/rushteam/bookrec/metrics"
	"github.com/rushteam/bookrec/store"
)

// seed 把给定的书名和行向量写入内存存储，每本书一条带封面的评分记录。
func seed(t *testing.T, titles []string, values [][]float64, skipImage ...string) *artifact.Store {
	t.Helper()
	users := make([]string, len(values[0]))
	for i := range users {
		users[i] = fmt.Sprintf("u%d", i)
	}
	m, err := core.NewRatingMatrix(titles, users, values)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := index.Fit(core.MetricEuclidean, m)
	if err != nil {
		t.Fatal(err)
	}
	skip := make(map[string]bool)
	for _, s := range skipImage {
		skip[s] = true
	}
	rows := make([]core.RatingRow, 0, len(titles))
	for _, title := range titles {
		if skip[title] {
			continue
		}
		rows = append(rows, core.RatingRow{Title: title, ImageURL: "http://img/" + strings.ReplaceAll(title, " ", "_") + ".jpg"})
	}
	s := artifact.NewStore(store.NewMemoryStore())
	b := &artifact.Bundle{Matrix: m, Index: idx, Table: core.NewRatingsTable(rows), Names: titles}
	if err := s.SaveAll(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	return s
}

func abc(t *testing.T) *artifact.Store {
	return seed(t, []string{"Book A", "Book B", "Book C"}, [][]float64{{5, 0}, {5, 0}, {0, 5}})
}

func TestRecommend_ThreeBooks(t *testing.T) {
	r := New(&artifact.Fresh{Store: abc(t)})

	res, err := r.Recommend(context.Background(), "Book A")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got := strings.Join(res.Titles, ","); got != "Book B,Book C" {
		t.Errorf("titles = %s, want Book B,Book C", got)
	}
	if res.ImageURLs[0] != "http://img/Book_B.jpg" || res.ImageURLs[1] != "http://img/Book_C.jpg" {
		t.Errorf("urls = %v", res.ImageURLs)
	}
	if res.Items[0].Distance != 0 {
		t.Errorf("Book B distance = %v, want 0", res.Items[0].Distance)
	}
	if d := res.Items[1].Distance; math.Abs(d-math.Sqrt(50)) > 1e-9 {
		t.Errorf("Book C distance = %v, want sqrt(50)", d)
	}
}

func TestRecommend_DuplicateVectorPolicies(t *testing.T) {
	s := abc(t)
	tests := []struct {
		policy string
		want   string
	}{
		// Book A 与 Book B 向量相同且行号更小，drop_first 丢掉的是 Book A
		{core.PolicyDropFirst, "Book B,Book C"},
		{core.PolicyExcludeQuery, "Book A,Book C"},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			p, err := DefaultPipeline(6, tt.policy)
			if err != nil {
				t.Fatal(err)
			}
			r := New(&artifact.Fresh{Store: s}, WithPipeline(p))
			res, err := r.Recommend(context.Background(), "Book B")
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if got := strings.Join(res.Titles, ","); got != tt.want {
				t.Errorf("titles = %s, want %s", got, tt.want)
			}
		})
	}
}

// 8 本评分向量完全相同的书：所有距离为 0，近邻按行号取前 6 行（Dup 0..Dup 5）
func TestRecommend_ManyIdenticalVectors(t *testing.T) {
	titles := make([]string, 8)
	values := make([][]float64, 8)
	for i := range titles {
		titles[i] = fmt.Sprintf("Dup %d", i)
		values[i] = []float64{3, 3}
	}
	s := seed(t, titles, values)

	tests := []struct {
		policy string
		query  string
		want   string
	}{
		{core.PolicyDropFirst, "Dup 0", "Dup 1,Dup 2,Dup 3,Dup 4,Dup 5"},
		{core.PolicyExcludeQuery, "Dup 0", "Dup 1,Dup 2,Dup 3,Dup 4,Dup 5"},
		// 查询书不在前 6 个近邻中
		{core.PolicyDropFirst, "Dup 7", "Dup 1,Dup 2,Dup 3,Dup 4,Dup 5"},
		{core.PolicyExcludeQuery, "Dup 7", "Dup 0,Dup 1,Dup 2,Dup 3,Dup 4"},
	}
	for _, tt := range tests {
		t.Run(tt.policy+"/"+tt.query, func(t *testing.T) {
			p, err := DefaultPipeline(6, tt.policy)
			if err != nil {
				t.Fatal(err)
			}
			res, err := New(&artifact.Fresh{Store: s}, WithPipeline(p)).Recommend(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(res.Titles) != 5 || len(res.ImageURLs) != 5 {
				t.Fatalf("len = %d/%d, want 5", len(res.Titles), len(res.ImageURLs))
			}
			if got := strings.Join(res.Titles, ","); got != tt.want {
				t.Errorf("titles = %s, want %s", got, tt.want)
			}
			for i, title := range res.Titles {
				if want := "http://img/" + strings.ReplaceAll(title, " ", "_") + ".jpg"; res.ImageURLs[i] != want {
					t.Errorf("urls[%d] = %s, want %s", i, res.ImageURLs[i], want)
				}
				if res.Items[i].Distance != 0 {
					t.Errorf("distance[%d] = %v, want 0", i, res.Items[i].Distance)
				}
			}
		})
	}
}

func lineBooks(t *testing.T, n int) *artifact.Store {
	titles := make([]string, n)
	values := make([][]float64, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("Book %02d", i)
		values[i] = []float64{float64(i * i), 1}
	}
	return seed(t, titles, values)
}

func TestRecommend_FiveResults(t *testing.T) {
	r := New(&artifact.Fresh{Store: lineBooks(t, 10)})

	res, err := r.Recommend(context.Background(), "Book 00")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	want := []string{"Book 01", "Book 02", "Book 03", "Book 04", "Book 05"}
	if len(res.Titles) != 5 || len(res.ImageURLs) != 5 {
		t.Fatalf("len = %d/%d, want 5", len(res.Titles), len(res.ImageURLs))
	}
	for i, w := range want {
		if res.Titles[i] != w {
			t.Errorf("titles[%d] = %s, want %s", i, res.Titles[i], w)
		}
		if res.Titles[i] == "Book 00" {
			t.Error("query title in result")
		}
	}
	for i := 1; i < len(res.Items); i++ {
		if res.Items[i].Distance < res.Items[i-1].Distance {
			t.Errorf("distances not ascending: %v then %v", res.Items[i-1].Distance, res.Items[i].Distance)
		}
	}
}

func TestRecommend_ConfiguredNeighbors(t *testing.T) {
	p, err := DefaultPipeline(4, core.PolicyExcludeQuery)
	if err != nil {
		t.Fatal(err)
	}
	r := New(&artifact.Fresh{Store: lineBooks(t, 10)}, WithPipeline(p))
	res, err := r.Recommend(context.Background(), "Book 05")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Titles) != 3 {
		t.Errorf("len = %d, want 3", len(res.Titles))
	}
}

func TestRecommend_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown title", func(t *testing.T) {
		r := New(&artifact.Fresh{Store: abc(t)})
		if _, err := r.Recommend(ctx, "book a"); !core.IsUnknownTitle(err) {
			t.Errorf("error = %v, want UnknownTitle", err)
		}
	})

	t.Run("before training", func(t *testing.T) {
		r := New(&artifact.Fresh{Store: artifact.NewStore(store.NewMemoryStore())})
		if _, err := r.Recommend(ctx, "Book A"); !core.IsArtifactMissing(err) {
			t.Errorf("error = %v, want ArtifactMissing", err)
		}
	})

	t.Run("image missing", func(t *testing.T) {
		s := seed(t, []string{"Book A", "Book B", "Book C"}, [][]float64{{5, 0}, {5, 0}, {0, 5}}, "Book C")
		r := New(&artifact.Fresh{Store: s})
		res, err := r.Recommend(ctx, "Book A")
		if !core.IsImageLookupFailed(err) {
			t.Fatalf("error = %v, want ImageLookupFailed", err)
		}
		if res != nil {
			t.Error("partial result returned")
		}
	})

	t.Run("corrupt artifact", func(t *testing.T) {
		s := abc(t)
		_ = s.Backend().Set(ctx, s.Keys().Table, []byte("{not json"))
		r := New(&artifact.Fresh{Store: s})
		if _, err := r.Recommend(ctx, "Book A"); !core.IsArtifactCorrupt(err) {
			t.Errorf("error = %v, want ArtifactCorrupt", err)
		}
	})
}

func TestRecommend_FailureNotLoggedAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	r := New(&artifact.Fresh{Store: artifact.NewStore(store.NewMemoryStore())}, WithLogger(logger))

	if _, err := r.Recommend(context.Background(), "Book A"); !core.IsArtifactMissing(err) {
		t.Fatalf("error = %v, want ArtifactMissing", err)
	}
	if buf.Len() != 0 {
		t.Errorf("failure logged at info or above: %s", buf.String())
	}
}

func TestRecommend_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := New(&artifact.Fresh{Store: abc(t)}, WithMetrics(m))

	_, _ = r.Recommend(context.Background(), "Book A")
	_, _ = r.Recommend(context.Background(), "nope")

	if got := testutil.ToFloat64(m.RecommendRequests.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RecommendRequests.WithLabelValues(string(core.KindUnknownTitle))); got != 1 {
		t.Errorf("unknown title count = %v, want 1", got)
	}
}

func TestTitles_ReadsBookNames(t *testing.T) {
	ctx := context.Background()
	s := abc(t)
	// 书名产物单独维护，可以与矩阵行不同
	if err := s.SaveBookNames(ctx, []string{"Book C", "Book A"}); err != nil {
		t.Fatal(err)
	}
	// 矩阵缺失不影响书名列表
	if err := s.Backend().Delete(ctx, s.Keys().Matrix); err != nil {
		t.Fatal(err)
	}

	for name, loader := range map[string]artifact.Loader{
		"fresh": &artifact.Fresh{Store: s},
		"cache": artifact.NewCache(s),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := New(loader).Titles(ctx)
			if err != nil {
				t.Fatalf("Titles() error = %v", err)
			}
			if strings.Join(got, ",") != "Book C,Book A" {
				t.Errorf("Titles() = %v, want [Book C Book A]", got)
			}
		})
	}
}

func TestTitles_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		s := abc(t)
		_ = s.Backend().Delete(ctx, s.Keys().Names)
		if _, err := New(&artifact.Fresh{Store: s}).Titles(ctx); !core.IsArtifactMissing(err) {
			t.Errorf("error = %v, want ArtifactMissing", err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		s := abc(t)
		_ = s.Backend().Set(ctx, s.Keys().Names, []byte("[1,2"))
		if _, err := New(&artifact.Fresh{Store: s}).Titles(ctx); !core.IsArtifactCorrupt(err) {
			t.Errorf("error = %v, want ArtifactCorrupt", err)
		}
	})
}

func TestTitles_ReturnsCopy(t *testing.T) {
	r := New(artifact.NewCache(abc(t)))
	got, err := r.Titles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got[0] = "changed"
	again, _ := r.Titles(context.Background())
	if again[0] != "Book A" {
		t.Errorf("cached names mutated: %v", again)
	}
}

func TestDefaultPipeline_Invalid(t *testing.T) {
	if _, err := DefaultPipeline(1, core.PolicyDropFirst); err == nil {
		t.Error("neighbors=1 accepted")
	}
	if _, err := DefaultPipeline(6, "random"); err == nil {
		t.Error("unknown policy accepted")
	}
}
