package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/bookrec/config"
	_ "github.com/rushteam/bookrec/config/builders"
	"github.com/rushteam/bookrec/pipeline"
)

func TestSupportedTypes(t *testing.T) {
	want := []string{"postprocess.image", "recall.knn", "rerank.drop_first", "rerank.exclude", "rerank.exclude_query", "rerank.topn"}
	got := config.SupportedTypes()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("SupportedTypes() = %v, want %v", got, want)
	}
}

func TestLoadPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	yaml := `
pipeline:
  name: similar_books
  nodes:
    - type: recall.knn
      config: {neighbors: 8}
    - type: postprocess.image
    - type: rerank.exclude_query
    - type: rerank.topn
      config: {n: 7}
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := config.LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline() error = %v", err)
	}
	want := "recall.knn,postprocess.image,rerank.exclude_query,rerank.topn"
	if got := strings.Join(p.Names(), ","); got != want {
		t.Errorf("names = %s, want %s", got, want)
	}
}

func TestValidatePipelineConfig(t *testing.T) {
	tests := []struct {
		name  string
		nodes []pipeline.NodeConfig
		want  string
	}{
		{"unsupported", []pipeline.NodeConfig{{Type: "recall.knn"}, {Type: "rank.lr"}}, "unsupported node type"},
		{"recall not first", []pipeline.NodeConfig{{Type: "rerank.topn"}, {Type: "recall.knn"}}, "first node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &pipeline.Config{}
			cfg.Pipeline.Nodes = tt.nodes
			err := config.ValidatePipelineConfig(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestBuilders_RejectNegative(t *testing.T) {
	f := config.DefaultFactory()
	if _, err := f.Build("recall.knn", map[string]any{"neighbors": -1}); err == nil {
		t.Error("negative neighbors accepted")
	}
	if _, err := f.Build("rerank.topn", map[string]any{"n": -2}); err == nil {
		t.Error("negative n accepted")
	}
}

func TestExcludeNodePolicy(t *testing.T) {
	tests := []struct {
		config map[string]any
		want   string
	}{
		{nil, "rerank.drop_first"},
		{map[string]any{"policy": "drop_first"}, "rerank.drop_first"},
		{map[string]any{"policy": "exclude_query"}, "rerank.exclude_query"},
	}
	factory := config.DefaultFactory()
	for _, tt := range tests {
		node, err := factory.Build("rerank.exclude", tt.config)
		if err != nil {
			t.Fatalf("Build(%v) error = %v", tt.config, err)
		}
		if node.Name() != tt.want {
			t.Errorf("Build(%v) = %s, want %s", tt.config, node.Name(), tt.want)
		}
	}
	if _, err := factory.Build("rerank.exclude", map[string]any{"policy": "random"}); err == nil {
		t.Error("unknown policy accepted")
	}
}
