package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shipper-match/internal/match"
	"github.com/sells-group/shipper-match/internal/model"
)

// maxRecordsPerRequest bounds POST /api/v1/matches.
const maxRecordsPerRequest = 500

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the match API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: newRouter(env, routerConfig{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				RequestTimeout: time.Duration(cfg.Match.RequestTimeoutSecs) * time.Second,
				MaxConcurrent:  cfg.Batch.MaxConcurrent,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// routerConfig carries the HTTP settings newRouter needs.
type routerConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxConcurrent  int
}

type apiServer struct {
	env           *matchEnv
	maxConcurrent int
}

func newRouter(env *matchEnv, rc routerConfig) http.Handler {
	s := &apiServer{env: env, maxConcurrent: rc.MaxConcurrent}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rc.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if rc.RequestTimeout > 0 {
			r.Use(middleware.Timeout(rc.RequestTimeout))
		}
		r.Post("/match", s.handleMatch)
		r.Post("/matches", s.handleMatches)
		r.Post("/feedback", s.handleFeedback)
	})

	return r
}

func (s *apiServer) handleMatch(w http.ResponseWriter, r *http.Request) {
	var f match.ConfidenceFactors
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateFactors(f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.env.Engine.BestMatch(r.Context(), f))
}

type matchesRequest struct {
	SearchTerm string                    `json:"search_term"`
	Filters    map[string]any            `json:"filters"`
	Records    []match.ConfidenceFactors `json:"records"`
}

type matchesResponse struct {
	Matches       []match.CompanyMatch `json:"matches"`
	ResultCount   int                  `json:"result_count"`
	AvgConfidence float64              `json:"avg_confidence"`
}

func (s *apiServer) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req matchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records are required")
		return
	}
	if len(req.Records) > maxRecordsPerRequest {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d records per request", maxRecordsPerRequest))
		return
	}
	for i, f := range req.Records {
		if err := validateFactors(f); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("records[%d]: %s", i, err.Error()))
			return
		}
	}

	matches := matchAll(r.Context(), s.env.Engine, req.Records, s.maxConcurrent)
	found := foundMatches(matches)
	avg := match.AverageConfidence(found)
	s.env.Sink.LogSearch(r.Context(), req.SearchTerm, req.Filters, len(found), avg)

	writeJSON(w, http.StatusOK, matchesResponse{
		Matches:       matches,
		ResultCount:   len(found),
		AvgConfidence: avg,
	})
}

type feedbackRequest struct {
	OriginalCompany  string  `json:"original_company"`
	CorrectedCompany *string `json:"corrected_company"`
	HSCode           string  `json:"hs_code"`
	Country          string  `json:"country"`
	ConfidenceAtTime int     `json:"confidence_at_time"`
	FeedbackType     string  `json:"feedback_type"`
}

func (s *apiServer) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fbType, err := model.ParseFeedbackType(req.FeedbackType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "feedback_type must be one of correct, incorrect, correction")
		return
	}
	if strings.TrimSpace(req.OriginalCompany) == "" {
		writeError(w, http.StatusBadRequest, "original_company is required")
		return
	}

	ok := s.env.Sink.SubmitFeedback(r.Context(), req.OriginalCompany, req.CorrectedCompany,
		req.HSCode, req.Country, req.ConfidenceAtTime, fbType)
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func validateFactors(f match.ConfidenceFactors) error {
	if strings.TrimSpace(f.HSCode) == "" || strings.TrimSpace(f.Country) == "" {
		return eris.New("hs_code and country are required")
	}
	return nil
}

func foundMatches(matches []match.CompanyMatch) []match.CompanyMatch {
	found := make([]match.CompanyMatch, 0, len(matches))
	for _, m := range matches {
		if !m.IsEmpty() {
			found = append(found, m)
		}
	}
	return found
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
