// Package api implements the HTTP surface of the serving API: the banner
// endpoint, the prediction endpoint, and their instrumentation wiring.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/irislabs/iris-serving/internal/classifier"
	"github.com/irislabs/iris-serving/pkg/logging"
	"github.com/irislabs/iris-serving/pkg/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

// Handler serves the prediction API routes.
type Handler struct {
	classifier *classifier.Classifier
	instr      *metrics.Instrumentation
	logger     logging.Logger
}

// New creates the API handler. The instrumentation wraps the prediction
// route so every request, failed or not, is counted and timed.
func New(cls *classifier.Classifier, instr *metrics.Instrumentation, logger logging.Logger) *Handler {
	return &Handler{
		classifier: cls,
		instr:      instr,
		logger:     logger,
	}
}

// Register registers the API routes on the Chi router.
func (h *Handler) Register(router chi.Router) {
	router.Get("/", h.root)
	router.With(h.instr.Middleware()).Post("/predict", h.predict)
}

// root is a plain liveness banner, kept for parity with external probes that
// poll the service root.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(r.Context(), w, http.StatusOK, struct {
		Message string `json:"message"`
	}{
		Message: "iris-serving API is running",
	})
}

type predictResponse struct {
	Prediction   int    `json:"prediction"`
	PredictionID string `json:"prediction_id"`
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var features classifier.Features
	if err := decodeJSON(r.Body, &features); err != nil {
		h.logger.Warn(ctx, "rejecting malformed prediction request", logging.Error(err))
		h.respondError(ctx, w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	species, err := h.classifier.Predict(features)
	if err != nil {
		h.logger.Warn(ctx, "rejecting invalid features", logging.Error(err))
		h.respondError(ctx, w, r, http.StatusBadRequest, err.Error())
		return
	}

	predictionID := ulid.Make().String()
	h.logger.Debug(ctx, "prediction served",
		logging.String("prediction_id", predictionID),
		logging.String("species", species.String()),
	)

	h.respondJSON(ctx, w, http.StatusOK, predictResponse{
		Prediction:   int(species),
		PredictionID: predictionID,
	})
}

func decodeJSON(r io.Reader, target any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		return err
	}

	// Reject trailing garbage after the JSON document.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected content after JSON body")
	}
	return nil
}
