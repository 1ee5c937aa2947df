package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rushteam/bookrec/artifact"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/index"
	"github.com/rushteam/bookrec/metrics"
	"github.com/rushteam/bookrec/recommend"
	"github.com/rushteam/bookrec/store"
)

func seeded(t *testing.T) *artifact.Store {
	t.Helper()
	m, err := core.NewRatingMatrix(
		[]string{"Book A", "Book B", "Book C"},
		[]string{"u1", "u2"},
		[][]float64{{5, 0}, {5, 0}, {0, 5}},
	)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := index.Fit(core.MetricEuclidean, m)
	if err != nil {
		t.Fatal(err)
	}
	table := core.NewRatingsTable([]core.RatingRow{
		{Title: "Book A", ImageURL: "http://img/a"},
		{Title: "Book B", ImageURL: "http://img/b"},
		{Title: "Book C", ImageURL: "http://img/c"},
	})
	s := artifact.NewStore(store.NewMemoryStore())
	if err := s.SaveAll(context.Background(), &artifact.Bundle{Matrix: m, Index: idx, Table: table, Names: m.Titles}); err != nil {
		t.Fatal(err)
	}
	return s
}

type fakeTrainer struct {
	err   error
	calls int
}

func (f *fakeTrainer) Train(ctx context.Context) error {
	f.calls++
	return f.err
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecommendations(t *testing.T) {
	h := New(recommend.New(&artifact.Fresh{Store: seeded(t)})).Handler()

	rec := do(t, h, http.MethodGet, "/v1/recommendations?title="+url.QueryEscape("Book A"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp recommendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "Book A" || len(resp.Recommendations) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Recommendations[0].Title != "Book B" || resp.Recommendations[0].ImageURL != "http://img/b" {
		t.Errorf("first = %+v", resp.Recommendations[0])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		store  func(t *testing.T) *artifact.Store
		target string
		status int
		kind   core.Kind
	}{
		{"unknown title", seeded, "/v1/recommendations?title=Nope", http.StatusNotFound, core.KindUnknownTitle},
		{"not trained", func(*testing.T) *artifact.Store { return artifact.NewStore(store.NewMemoryStore()) },
			"/v1/recommendations?title=Book+A", http.StatusServiceUnavailable, core.KindArtifactMissing},
		{"missing title", seeded, "/v1/recommendations", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(recommend.New(&artifact.Fresh{Store: tt.store(t)})).Handler()
			rec := do(t, h, http.MethodGet, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Kind != string(tt.kind) {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.kind)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.UnknownTitle("x"), http.StatusNotFound},
		{core.ArtifactMissing("model.json", nil), http.StatusServiceUnavailable},
		{core.ArtifactCorrupt("model.json", nil), http.StatusInternalServerError},
		{core.ImageLookupFailed("x"), http.StatusBadGateway},
		{core.TrainingFailed(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestBooks(t *testing.T) {
	h := New(recommend.New(&artifact.Fresh{Store: seeded(t)})).Handler()
	rec := do(t, h, http.MethodGet, "/v1/books")
	var resp booksResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if strings.Join(resp.Titles, ",") != "Book A,Book B,Book C" {
		t.Errorf("titles = %v", resp.Titles)
	}
}

func TestTrain(t *testing.T) {
	rec := recommend.New(&artifact.Fresh{Store: seeded(t)})

	ok := &fakeTrainer{}
	h := New(rec, WithTrainer(ok)).Handler()
	if r := do(t, h, http.MethodPost, "/v1/train"); r.Code != http.StatusOK || ok.calls != 1 {
		t.Errorf("status = %d, calls = %d", r.Code, ok.calls)
	}

	failing := &fakeTrainer{err: core.TrainingFailed(errors.New("disk full"))}
	h = New(rec, WithTrainer(failing)).Handler()
	r := do(t, h, http.MethodPost, "/v1/train")
	if r.Code != http.StatusInternalServerError || !strings.Contains(r.Body.String(), string(core.KindTrainingFailed)) {
		t.Errorf("status = %d, body = %s", r.Code, r.Body)
	}

	h = New(rec).Handler()
	if r := do(t, h, http.MethodPost, "/v1/train"); r.Code != http.StatusNotFound && r.Code != http.StatusMethodNotAllowed {
		t.Errorf("train without trainer status = %d", r.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := New(recommend.New(&artifact.Fresh{Store: seeded(t)}, recommend.WithMetrics(m)), WithGatherer(reg)).Handler()

	if r := do(t, h, http.MethodGet, "/healthz"); r.Code != http.StatusOK {
		t.Errorf("healthz status = %d", r.Code)
	}
	do(t, h, http.MethodGet, "/v1/recommendations?title=Book+A")
	r := do(t, h, http.MethodGet, "/metrics")
	if !strings.Contains(r.Body.String(), "bookrec_recommend_requests_total") {
		t.Errorf("metrics body missing recommend counter:\n%s", r.Body)
	}
}

func TestRecommendations_Explain(t *testing.T) {
	h := New(recommend.New(&artifact.Fresh{Store: seeded(t)})).Handler()

	rec := do(t, h, http.MethodGet, "/v1/recommendations?explain=true&title=Book+A")
	var resp recommendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if got := resp.Recommendations[0].Labels["recall_source"]; got != "knn" {
		t.Errorf("recall_source = %q, want knn", got)
	}

	if rec := do(t, h, http.MethodGet, "/v1/recommendations?explain=maybe&title=Book+A"); rec.Code != http.StatusBadRequest {
		t.Errorf("explain=maybe status = %d, want 400", rec.Code)
	}
}
