package utils

import "testing"

func TestMergeLabel(t *testing.T) {
	tests := []struct {
		name     string
		existing Label
		incoming Label
		want     Label
	}{
		{"empty existing", Label{}, Label{Value: "knn", Source: "recall"}, Label{Value: "knn", Source: "recall"}},
		{"empty incoming", Label{Value: "knn", Source: "recall"}, Label{}, Label{Value: "knn", Source: "recall"}},
		{"accumulate", Label{Value: "knn", Source: "recall"}, Label{Value: "drop_first", Source: "rerank"}, Label{Value: "knn|drop_first", Source: "recall,rerank"}},
		{"missing source", Label{Value: "a"}, Label{Value: "b", Source: "rerank"}, Label{Value: "a|b", Source: "rerank"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeLabel(tt.existing, tt.incoming); got != tt.want {
				t.Errorf("MergeLabel() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLabels(t *testing.T) {
	var l Labels
	if _, ok := l.Get("x"); ok {
		t.Error("Get on nil Labels found a value")
	}
	l.Put("recall_source", Label{Value: "knn", Source: "recall"})
	l.Put("recall_source", Label{Value: "manual", Source: "rerank"})
	l.Put("exclude_policy", Label{Value: "drop_first", Source: "rerank"})

	got, _ := l.Get("recall_source")
	if got.Value != "knn|manual" || got.Source != "recall,rerank" {
		t.Errorf("merged = %+v", got)
	}
	if keys := l.Keys(); len(keys) != 2 || keys[0] != "exclude_policy" {
		t.Errorf("Keys() = %v", keys)
	}
	if v := l.Values(); v["exclude_policy"] != "drop_first" {
		t.Errorf("Values() = %v", v)
	}
	if Labels(nil).Values() != nil {
		t.Error("Values() of empty Labels should be nil")
	}
}
