package postprocess

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/bookrec/core"
)

func TestImageNode(t *testing.T) {
	snap := &core.Snapshot{Table: core.NewRatingsTable([]core.RatingRow{
		{Title: "Book A", ImageURL: "http://img/a.jpg"},
		{Title: "Book B", ImageURL: "http://img/b.jpg"},
		{Title: "Book A", ImageURL: "http://img/a-second.jpg"},
	})}
	rctx := &core.RecommendContext{Title: "Book A", Snapshot: snap}

	items := []*core.Item{core.NewItem("Book A", 0), core.NewItem("Book B", 1)}
	got, err := (&ImageNode{}).Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got[0].ImageURL != "http://img/a.jpg" {
		t.Errorf("Book A url = %q, want first match", got[0].ImageURL)
	}
	if got[1].ImageURL != "http://img/b.jpg" {
		t.Errorf("Book B url = %q", got[1].ImageURL)
	}
}

func TestImageNode_MissingAborts(t *testing.T) {
	snap := &core.Snapshot{Table: core.NewRatingsTable([]core.RatingRow{{Title: "Book A"}})}
	rctx := &core.RecommendContext{Snapshot: snap}
	items := []*core.Item{core.NewItem("Book A", 0), core.NewItem("Book C", 2)}

	got, err := (&ImageNode{}).Process(context.Background(), rctx, items)
	if !core.IsImageLookupFailed(err) {
		t.Fatalf("error = %v, want ImageLookupFailed", err)
	}
	if got != nil {
		t.Error("partial result returned")
	}
	if e := core.AsError(err); e.Title != "Book C" {
		t.Errorf("Title = %q, want Book C", e.Title)
	}
}

func TestImageNode_NoSnapshot(t *testing.T) {
	if _, err := (&ImageNode{}).Process(context.Background(), &core.RecommendContext{}, nil); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("error = %v", err)
	}
}
