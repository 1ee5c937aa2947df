package artifact

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// 产物种类，写在 envelope 里，防止把一个产物误读成另一个
const (
	KindRatingMatrix  = "rating_matrix"
	KindNeighborIndex = "neighbor_index"
	KindRatingsTable  = "ratings_table"
	KindBookNames     = "book_names"
)

// formatVersion 是 envelope 的格式版本
const formatVersion = 1

var (
	// ErrKindMismatch 表示 envelope 中的种类与期望不符
	ErrKindMismatch = errors.New("artifact kind mismatch")
	// ErrUnsupportedVersion 表示格式版本不支持
	ErrUnsupportedVersion = errors.New("unsupported artifact version")
	// ErrEmptyPayload 表示 envelope 没有 payload（常见于写了一半的文件）
	ErrEmptyPayload = errors.New("empty artifact payload")
)

// envelope 是所有产物的统一外层结构。
type envelope struct {
	Kind      string          `json:"kind"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// encode 把 v 编码为带 envelope 的 JSON。
func encode(kind string, v any, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return json.Marshal(envelope{
		Kind:      kind,
		Version:   formatVersion,
		CreatedAt: now.UTC(),
		Payload:   payload,
	})
}

// decode 校验 envelope 并把 payload 解码到 v。
func decode(kind string, data []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Kind != kind {
		return fmt.Errorf("%w: got %q, want %q", ErrKindMismatch, env.Kind, kind)
	}
	if env.Version != formatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", kind, err)
	}
	return nil
}
