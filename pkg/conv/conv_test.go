package conv

import "testing"

func TestConfigGet(t *testing.T) {
	m := map[string]any{
		"policy": "drop_first",
		"cache":  true,
		"n":      6,
	}

	if got := ConfigGet(m, "policy", ""); got != "drop_first" {
		t.Errorf("ConfigGet(policy) = %q, want drop_first", got)
	}
	if got := ConfigGet(m, "cache", false); !got {
		t.Errorf("ConfigGet(cache) = %v, want true", got)
	}
	// 类型不符返回默认值
	if got := ConfigGet(m, "n", "x"); got != "x" {
		t.Errorf("ConfigGet(n) = %q, want default x", got)
	}
	if got := ConfigGet(nil, "policy", "d"); got != "d" {
		t.Errorf("ConfigGet(nil) = %q, want d", got)
	}
}

func TestConfigGetInt(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
		want int
	}{
		{"yaml int", map[string]any{"k": 6}, 6},
		{"json float", map[string]any{"k": 6.0}, 6},
		{"fractional float", map[string]any{"k": 6.5}, 9},
		{"int64", map[string]any{"k": int64(3)}, 3},
		{"uint64", map[string]any{"k": uint64(4)}, 4},
		{"string", map[string]any{"k": " 7 "}, 7},
		{"bad string", map[string]any{"k": "six"}, 9},
		{"bool", map[string]any{"k": true}, 9},
		{"missing", map[string]any{}, 9},
		{"nil map", nil, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConfigGetInt(tt.m, "k", 9); got != tt.want {
				t.Errorf("ConfigGetInt() = %d, want %d", got, tt.want)
			}
		})
	}
}
