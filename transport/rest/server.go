package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/pkg/handlers"
)

type ReportSource interface {
	BySession(ctx context.Context, sessionID string) ([]entity.TurnRecord, error)
}

type Server struct {
	logger  *slog.Logger
	reports ReportSource
}

func New(logger *slog.Logger, reports ReportSource) *Server {
	return &Server{
		logger:  logger.With("component", "rest"),
		reports: reports,
	}
}

// Start runs the HTTP server until the context is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", handlers.PingHandler)
	mux.HandleFunc("/sessions/", that.reportHandler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// reportHandler serves the archived turn history of a session:
// GET /sessions/{id}/report.
func (that *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "reportHandler")

	if that.reports == nil {
		http.Error(w, "reporting is not enabled", http.StatusNotFound)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	sessionID, action, found := strings.Cut(rest, "/")
	if !found || action != "report" || sessionID == "" {
		http.NotFound(w, r)
		return
	}

	records, err := that.reports.BySession(r.Context(), sessionID)
	if err != nil {
		log.Error("failed to load turn records", "sessionID", sessionID, "error", err)
		http.Error(w, "failed to load report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(records); err != nil {
		log.Error("failed to encode report", "error", err)
	}
}
