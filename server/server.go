// Package server 通过 HTTP 暴露推荐查询与训练触发。
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/logging"
	"github.com/rushteam/bookrec/recommend"
)

// Recommender 是查询侧依赖，通常是 *recommend.Recommender。
type Recommender interface {
	Recommend(ctx context.Context, title string) (*recommend.Result, error)
	Titles(ctx context.Context) ([]string, error)
}

// Trainer 是训练触发依赖，通常是 *train.Trigger。
type Trainer interface {
	Train(ctx context.Context) error
}

// Server 持有 HTTP 处理所需的依赖。
type Server struct {
	recommender  Recommender
	trainer      Trainer
	gatherer     prometheus.Gatherer
	trainTimeout time.Duration
	logger       zerolog.Logger
}

// Option 配置 Server。
type Option func(*Server)

// WithTrainer 开启 POST /v1/train。
func WithTrainer(t Trainer) Option {
	return func(s *Server) { s.trainer = t }
}

// WithGatherer 开启 GET /metrics。
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithTrainTimeout 限制单次训练时长，0 表示不限制。
func WithTrainTimeout(d time.Duration) Option {
	return func(s *Server) { s.trainTimeout = d }
}

func New(rec Recommender, opts ...Option) *Server {
	s := &Server{
		recommender: rec,
		logger:      logging.WithComponent("server"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler 返回挂载全部路由的 http.Handler。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/books", s.books)
		r.Get("/recommendations", s.recommendations)
		if s.trainer != nil {
			r.Post("/train", s.train)
		}
	})
	return r
}

// requestLogger 为每个请求注入带 request_id 的 logger，并记录访问日志。
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := s.logger.With().Str("request_id", chimiddleware.GetReqID(r.Context())).Logger()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logging.ContextWithLogger(r.Context(), l)))

		l.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type book struct {
	Title    string            `json:"title"`
	ImageURL string            `json:"image_url"`
	Distance float64           `json:"distance"`
	Labels   map[string]string `json:"labels,omitempty"`
}

type recommendResponse struct {
	Query           string `json:"query"`
	Recommendations []book `json:"recommendations"`
}

type booksResponse struct {
	Titles []string `json:"titles"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type recommendRequest struct {
	Title   string `validate:"required,max=1024"`
	Explain string `validate:"omitempty,boolean"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) books(w http.ResponseWriter, r *http.Request) {
	titles, err := s.recommender.Titles(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booksResponse{Titles: titles})
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := recommendRequest{Title: q.Get("title"), Explain: q.Get("explain")}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid query: title is required, explain must be a boolean"})
		return
	}
	explain, _ := strconv.ParseBool(req.Explain)

	res, err := s.recommender.Recommend(r.Context(), req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := recommendResponse{Query: res.Query, Recommendations: make([]book, len(res.Titles))}
	for i := range res.Titles {
		out.Recommendations[i] = book{Title: res.Titles[i], ImageURL: res.ImageURLs[i]}
		if i < len(res.Items) {
			out.Recommendations[i].Distance = res.Items[i].Distance
			if explain {
				out.Recommendations[i].Labels = res.Items[i].Labels.Values()
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) train(w http.ResponseWriter, r *http.Request) {
	// 客户端断开不中断训练
	ctx := context.WithoutCancel(r.Context())
	if s.trainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.trainTimeout)
		defer cancel()
	}
	if err := s.trainer.Train(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "trained"})
}

// statusOf 把错误类别映射为 HTTP 状态码。
func statusOf(err error) int {
	switch core.KindOf(err) {
	case core.KindUnknownTitle:
		return http.StatusNotFound
	case core.KindArtifactMissing:
		return http.StatusServiceUnavailable
	case core.KindImageLookupFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(core.KindOf(err))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// ListenAndServe 启动服务，ctx 结束时优雅关闭。
func ListenAndServe(ctx context.Context, addr string, h http.Handler, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
