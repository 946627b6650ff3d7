package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chiserver "github.com/irislabs/iris-serving/pkg/http_server/chi_server"
	"github.com/irislabs/iris-serving/pkg/logging"
)

// respondJSON writes a JSON response. Encoding failures are logged, not
// propagated: at that point the status line is already on the wire.
func (h *Handler) respondJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error(ctx, "failed to encode JSON response", logging.Error(err))
	}
}

// respondError writes an RFC 7807 problem detail.
func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, r *http.Request, statusCode int, detail string) {
	h.respondJSON(ctx, w, statusCode, chiserver.ProblemDetail{
		Type:      fmt.Sprintf("https://httpstatuses.com/%d", statusCode),
		Title:     http.StatusText(statusCode),
		Status:    statusCode,
		Detail:    detail,
		Instance:  r.URL.Path,
		Timestamp: time.Now(),
		RequestID: chiserver.RequestID(ctx),
	})
}
