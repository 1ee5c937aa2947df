// Package conv 读取 YAML/JSON 解析出的 map[string]any 配置值。
package conv

import (
	"math"
	"strconv"
	"strings"
)

// ToInt 将 any 转为 int。
// 支持各宽度整数、无小数部分的浮点数（JSON 数字）、十进制字符串（环境变量、带引号的 YAML）。
func ToInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case uint:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		return floatToInt(val)
	case float32:
		return floatToInt(float64(val))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		return n, err == nil
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return int(f), true
}

// ConfigGet 按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	if t, ok := m[key].(T); ok {
		return t
	}
	return defaultVal
}

// ConfigGetInt 按 key 取 int，规则同 ToInt。
func ConfigGetInt(m map[string]any, key string, defaultVal int) int {
	if n, ok := ToInt(m[key]); ok {
		return n
	}
	return defaultVal
}
