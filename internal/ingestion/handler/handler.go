// Package handler exposes on-demand ingestion runs over HTTP.
package handler

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/inkwell-dev/website/internal/ingestion"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/inkwell-dev/website/pkg/logger"
)

// Runner performs one ingestion run.
type Runner interface {
	Run(ctx context.Context) (*ingestion.Report, error)
}

type Handler struct {
	runner    Runner
	tokenHash [sha256.Size]byte
	logger    *slog.Logger
}

// New creates a Handler that only accepts requests bearing token.
func New(runner Runner, token string) *Handler {
	return &Handler{
		runner:    runner,
		tokenHash: sha256.Sum256([]byte(token)),
		logger:    slog.Default().With("component", "ingest-handler"),
	}
}

// Ingest runs the pipeline and responds with the per-file report. The run is
// detached from request cancellation.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if !h.authorized(r) {
		h.writeError(w, http.StatusUnauthorized, apperrors.ErrUnauthorized.Error())
		return
	}

	report, err := h.runner.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("on-demand ingestion failed", "error", err, "status_code", status)
		h.writeError(w, status, err.Error())
		return
	}
	log.Info("on-demand ingestion finished",
		"published", report.Published,
		"failed", report.Failed,
	)
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	presented := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(presented[:], h.tokenHash[:]) == 1
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
