package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/irislabs/iris-serving/internal/classifier"
	chiserver "github.com/irislabs/iris-serving/pkg/http_server/chi_server"
	"github.com/irislabs/iris-serving/pkg/logging"
	"github.com/irislabs/iris-serving/pkg/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*metrics.Registry, http.Handler) {
	t.Helper()

	reg := metrics.NewRegistry()
	instr, err := metrics.NewInstrumentation(reg, "predict")
	require.NoError(t, err)

	router := chi.NewRouter()
	New(classifier.New(), instr, logging.NewNoop()).Register(router)
	return reg, router
}

func requestCount(t *testing.T, reg *metrics.Registry) float64 {
	t.Helper()

	c, err := reg.GetOrCreateCounter(metrics.RequestCountName, "",
		metrics.Labels{"operation": "predict"})
	require.NoError(t, err)
	return c.Value()
}

func postPredict(handler http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	_, handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "iris-serving API is running", body.Message)
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantPrediction int
	}{
		{
			name:           "setosa",
			body:           `{"sepal_length": 5.1, "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2}`,
			wantPrediction: 0,
		},
		{
			name:           "versicolor",
			body:           `{"sepal_length": 6.0, "sepal_width": 2.7, "petal_length": 4.2, "petal_width": 1.3}`,
			wantPrediction: 1,
		},
		{
			name:           "virginica",
			body:           `{"sepal_length": 6.9, "sepal_width": 3.1, "petal_length": 5.4, "petal_width": 2.1}`,
			wantPrediction: 2,
		},
	}

	_, handler := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postPredict(handler, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp struct {
				Prediction   int    `json:"prediction"`
				PredictionID string `json:"prediction_id"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantPrediction, resp.Prediction)

			_, err := ulid.Parse(resp.PredictionID)
			assert.NoError(t, err, "prediction_id must be a valid ULID")
		})
	}
}

func TestPredict_UniquePredictionIDs(t *testing.T) {
	_, handler := newTestHandler(t)
	body := `{"sepal_length": 5.1, "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2}`

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		rec := postPredict(handler, body)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			PredictionID string `json:"prediction_id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, seen[resp.PredictionID], "prediction IDs must not repeat")
		seen[resp.PredictionID] = true
	}
}

func TestPredict_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "malformed JSON", body: `{"sepal_length":`},
		{name: "unknown field", body: `{"sepal_length": 5.1, "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2, "color": "blue"}`},
		{name: "trailing garbage", body: `{"sepal_length": 5.1, "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2} extra`},
		{name: "missing measurement", body: `{"sepal_length": 5.1, "sepal_width": 3.5, "petal_length": 1.4}`},
		{name: "non-positive measurement", body: `{"sepal_length": 5.1, "sepal_width": 3.5, "petal_length": 1.4, "petal_width": -0.2}`},
		{name: "wrong type", body: `{"sepal_length": "five", "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2}`},
	}

	_, handler := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postPredict(handler, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var problem chiserver.ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, http.StatusBadRequest, problem.Status)
			assert.NotEmpty(t, problem.Detail)
			assert.Equal(t, "/predict", problem.Instance)
		})
	}
}

func TestPredict_RecordsMetricsOnAllOutcomes(t *testing.T) {
	reg, handler := newTestHandler(t)

	require.Equal(t, http.StatusOK,
		postPredict(handler, `{"sepal_length": 5.1, "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2}`).Code)
	require.Equal(t, http.StatusBadRequest, postPredict(handler, `not json`).Code)
	require.Equal(t, http.StatusBadRequest,
		postPredict(handler, `{"sepal_length": 0, "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2}`).Code)

	assert.Equal(t, 3.0, requestCount(t, reg), "failed requests must still be counted")
}
