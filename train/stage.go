package train

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/bookrec/artifact"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/index"
	"github.com/rushteam/bookrec/logging"
	"github.com/rushteam/bookrec/pkg/dsl"
)

// State 在各训练阶段之间传递中间结果。
type State struct {
	RunID string

	Books          []Book
	Ratings        []Rating
	SkippedBooks   int
	SkippedRatings int

	Rows   []core.RatingRow
	Matrix *core.RatingMatrix
	Index  *index.BruteForce
}

// Stage 是训练流程中的一步，出错时整个流程中止。
type Stage interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

// Ingest 并发读取书目与评分 CSV。
type Ingest struct {
	BooksPath   string
	RatingsPath string
	CSV         CSVOptions
}

func (s *Ingest) Name() string { return "ingest" }

func (s *Ingest) Run(ctx context.Context, st *State) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		st.Books, st.SkippedBooks, err = ReadBooks(egCtx, s.BooksPath, s.CSV)
		if err != nil {
			return fmt.Errorf("read books: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		st.Ratings, st.SkippedRatings, err = ReadRatings(egCtx, s.RatingsPath, s.CSV)
		if err != nil {
			return fmt.Errorf("read ratings: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().
		Int("books", len(st.Books)).Int("books_skipped", st.SkippedBooks).
		Int("ratings", len(st.Ratings)).Int("ratings_skipped", st.SkippedRatings).
		Msg("ingested")
	return nil
}

// ErrEmptyDataset 表示书目或评分为空
var ErrEmptyDataset = errors.New("train: empty dataset")

// Validate 检查两份数据均非空。表头列在读取时已校验。
type Validate struct{}

func (s *Validate) Name() string { return "validate" }

func (s *Validate) Run(_ context.Context, st *State) error {
	if len(st.Books) == 0 {
		return fmt.Errorf("%w: no books", ErrEmptyDataset)
	}
	if len(st.Ratings) == 0 {
		return fmt.Errorf("%w: no ratings", ErrEmptyDataset)
	}
	return nil
}

// TransformStage 关联、过滤、去重并透视。
type TransformStage struct {
	MinUserRatings int
	Filter         *dsl.Filter
}

func (s *TransformStage) Name() string { return "transform" }

func (s *TransformStage) Run(ctx context.Context, st *State) error {
	rows, m, err := Transform(st.Books, st.Ratings, s.MinUserRatings, s.Filter)
	if err != nil {
		return err
	}
	st.Rows, st.Matrix = rows, m
	logging.Ctx(ctx).Info().
		Str("filter", s.Filter.Expr()).
		Int("rows", len(rows)).Int("titles", m.Len()).Int("users", len(m.Users)).
		Msg("transformed")
	return nil
}

// Fit 在矩阵行上构建近邻索引。
type Fit struct {
	Metric string
}

func (s *Fit) Name() string { return "fit" }

func (s *Fit) Run(_ context.Context, st *State) error {
	idx, err := index.Fit(s.Metric, st.Matrix)
	if err != nil {
		return err
	}
	st.Index = idx
	return nil
}

// Save 写入全部产物。
type Save struct {
	Store *artifact.Store
}

func (s *Save) Name() string { return "save" }

func (s *Save) Run(ctx context.Context, st *State) error {
	return s.Store.SaveAll(ctx, &artifact.Bundle{
		Matrix: st.Matrix,
		Index:  st.Index,
		Table:  core.NewRatingsTable(st.Rows),
		Names:  st.Matrix.Titles,
	})
}
