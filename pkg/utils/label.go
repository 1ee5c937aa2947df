// Package utils 提供推荐链路中的标签类型，用于解释每个结果的来源。
package utils

import "sort"

// Label 记录一个 Node 对结果做了什么，例如 recall_source=knn、exclude_policy=drop_first。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // 写入该标签的阶段：recall / postprocess / rerank
}

// MergeLabel 合并同名 Label，新值追加在旧值之后：Value 以 '|' 连接，Source 以 ',' 连接。
// 任一侧 Value 为空时直接返回另一侧。
func MergeLabel(existing, incoming Label) Label {
	switch {
	case existing.Value == "":
		return incoming
	case incoming.Value == "":
		return existing
	}
	return Label{
		Value:  existing.Value + "|" + incoming.Value,
		Source: join(existing.Source, incoming.Source, ","),
	}
}

func join(a, b, sep string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + sep + b
}

// Labels 是 key -> Label 的集合，零值可读不可写，写入前用 Put 惰性初始化。
type Labels map[string]Label

// Put 写入 Label，同名 key 按 MergeLabel 合并。
func (l *Labels) Put(key string, lbl Label) {
	if *l == nil {
		*l = make(Labels)
	}
	if old, ok := (*l)[key]; ok {
		lbl = MergeLabel(old, lbl)
	}
	(*l)[key] = lbl
}

// Get 读取 Label。
func (l Labels) Get(key string) (Label, bool) {
	lbl, ok := l[key]
	return lbl, ok
}

// Values 返回 key -> Value，便于输出 explain 信息。
func (l Labels) Values() map[string]string {
	if len(l) == 0 {
		return nil
	}
	out := make(map[string]string, len(l))
	for k, v := range l {
		out[k] = v.Value
	}
	return out
}

// Keys 返回排序后的 key 列表。
func (l Labels) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
