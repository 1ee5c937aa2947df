package artifact

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/index"
	"github.com/rushteam/bookrec/metrics"
)

// Keys 是各产物在底层 Store 中的 key。
type Keys struct {
	Matrix string
	Index  string
	Table  string
	Names  string
}

// DefaultKeys 返回默认 key，prefix 用于多套产物共存。
func DefaultKeys(prefix string) Keys {
	return Keys{
		Matrix: prefix + "book_pivot.json",
		Index:  prefix + "model.json",
		Table:  prefix + "final_rating.json",
		Names:  prefix + "book_names.json",
	}
}

// All 返回全部 key。
func (k Keys) All() []string {
	return []string{k.Matrix, k.Index, k.Table, k.Names}
}

// Bundle 是一次训练产出的全部产物。
type Bundle struct {
	Matrix *core.RatingMatrix
	Index  *index.BruteForce
	Table  *core.RatingsTable
	Names  []string
}

// Store 负责产物的编解码与读写，不做缓存：每次 Load 都重新读取底层存储。
type Store struct {
	backend core.Store
	keys    Keys
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option 配置 Store。
type Option func(*Store)

// WithKeys 覆盖默认 key。
func WithKeys(keys Keys) Option {
	return func(s *Store) { s.keys = keys }
}

// WithMetrics 注入指标。
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock 覆盖时间来源（测试用）。
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(backend core.Store, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		keys:    DefaultKeys(""),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys 返回当前使用的 key。
func (s *Store) Keys() Keys { return s.keys }

// Backend 返回底层存储。
func (s *Store) Backend() core.Store { return s.backend }

// read 读取并解码一个产物：读不到为 ArtifactMissing，解不开为 ArtifactCorrupt。
func (s *Store) read(ctx context.Context, key, kind string, v any) (err error) {
	defer func() { s.metrics.ObserveArtifactLoad(kind, err) }()

	data, err := s.backend.Get(ctx, key)
	if err != nil {
		return core.ArtifactMissing(key, err)
	}
	if err := decode(kind, data, v); err != nil {
		return core.ArtifactCorrupt(key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key, kind string, v any) error {
	data, err := encode(kind, v, s.now())
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// LoadRatingMatrix 读取评分矩阵。
func (s *Store) LoadRatingMatrix(ctx context.Context) (*core.RatingMatrix, error) {
	var m core.RatingMatrix
	if err := s.read(ctx, s.keys.Matrix, KindRatingMatrix, &m); err != nil {
		return nil, err
	}
	if err := m.Rebuild(); err != nil {
		return nil, core.ArtifactCorrupt(s.keys.Matrix, err)
	}
	return &m, nil
}

// LoadNeighborIndex 读取近邻索引。
func (s *Store) LoadNeighborIndex(ctx context.Context) (*index.BruteForce, error) {
	var idx index.BruteForce
	if err := s.read(ctx, s.keys.Index, KindNeighborIndex, &idx); err != nil {
		return nil, err
	}
	if err := idx.Validate(); err != nil {
		return nil, core.ArtifactCorrupt(s.keys.Index, err)
	}
	return &idx, nil
}

// LoadRatingsTable 读取评分表。
func (s *Store) LoadRatingsTable(ctx context.Context) (*core.RatingsTable, error) {
	var t core.RatingsTable
	if err := s.read(ctx, s.keys.Table, KindRatingsTable, &t); err != nil {
		return nil, err
	}
	t.Rebuild()
	return &t, nil
}

// LoadBookNames 读取可选书名列表。
func (s *Store) LoadBookNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.read(ctx, s.keys.Names, KindBookNames, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Load 并发读取矩阵、索引、评分表，任一失败则整体失败。
// 索引行数与矩阵行数不一致时视为损坏（通常是训练写到一半）。
func (s *Store) Load(ctx context.Context) (*core.Snapshot, error) {
	var (
		matrix *core.RatingMatrix
		idx    *index.BruteForce
		table  *core.RatingsTable
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		matrix, err = s.LoadRatingMatrix(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		idx, err = s.LoadNeighborIndex(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		table, err = s.LoadRatingsTable(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if idx.Len() != matrix.Len() {
		return nil, core.ArtifactCorrupt(s.keys.Index,
			fmt.Errorf("index has %d rows but matrix has %d", idx.Len(), matrix.Len()))
	}

	return &core.Snapshot{
		Matrix:   matrix,
		Index:    idx,
		Table:    table,
		LoadedAt: s.now(),
	}, nil
}

func (s *Store) SaveRatingMatrix(ctx context.Context, m *core.RatingMatrix) error {
	return s.write(ctx, s.keys.Matrix, KindRatingMatrix, m)
}

func (s *Store) SaveNeighborIndex(ctx context.Context, idx *index.BruteForce) error {
	return s.write(ctx, s.keys.Index, KindNeighborIndex, idx)
}

func (s *Store) SaveRatingsTable(ctx context.Context, t *core.RatingsTable) error {
	return s.write(ctx, s.keys.Table, KindRatingsTable, t)
}

func (s *Store) SaveBookNames(ctx context.Context, names []string) error {
	return s.write(ctx, s.keys.Names, KindBookNames, names)
}

// SaveAll 写入全部产物。矩阵最后写：读方在矩阵更新前看到的新索引会因行数不一致被判为损坏。
func (s *Store) SaveAll(ctx context.Context, b *Bundle) error {
	if err := s.SaveNeighborIndex(ctx, b.Index); err != nil {
		return err
	}
	if err := s.SaveRatingsTable(ctx, b.Table); err != nil {
		return err
	}
	if err := s.SaveBookNames(ctx, b.Names); err != nil {
		return err
	}
	return s.SaveRatingMatrix(ctx, b.Matrix)
}
