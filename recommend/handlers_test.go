package recommend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cropadvisor-go/auth"
)

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleRecommend(t *testing.T) {
	h := NewHandlers(newTestService(t, &stubPredictor{proba: []float64{0.1, 0.2, 0.7}}))

	req := httptest.NewRequest(http.MethodPost, "/api/detailed-recommend", strings.NewReader(validBody))
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), alice))
	rec, body := do(t, h.HandleRecommend(), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	recs, ok := body["recommendations"].([]any)
	require.True(t, ok)
	require.Len(t, recs, 3)
	assert.Equal(t, "rice", recs[0].(map[string]any)["crop"])
	assert.Equal(t, "kharif", body["user_inputs"].(map[string]any)["season"])
}

func TestHandleRecommend_Unauthenticated(t *testing.T) {
	model := &stubPredictor{proba: []float64{0.1, 0.2, 0.7}}
	h := NewHandlers(newTestService(t, model))

	req := httptest.NewRequest(http.MethodPost, "/api/detailed-recommend", strings.NewReader(validBody))
	rec, body := do(t, h.HandleRecommend(), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Authentication required", body["error"])
	assert.Zero(t, model.calls)
}

func TestHandleRecommend_ModelFailure(t *testing.T) {
	h := NewHandlers(newTestService(t, &stubPredictor{proba: []float64{0.5, 0.5}}))

	req := httptest.NewRequest(http.MethodPost, "/api/detailed-recommend", strings.NewReader(validBody))
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), alice))
	rec, body := do(t, h.HandleRecommend(), req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An internal error occurred", body["error"])
}

func TestHandleCropDetails(t *testing.T) {
	h := NewHandlers(newTestService(t, &stubPredictor{})).HandleCropDetails()

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/crop-details?crop=Maize", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "maize", body["crop"])
	assert.Equal(t, "Tall cereal", body["description"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/crop-details", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Crop name required", body["error"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/crop-details?crop=Quinoa", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Details for quinoa not found", body["error"])
}

func TestHandleDatasetInfo(t *testing.T) {
	h := NewHandlers(newTestService(t, &stubPredictor{})).HandleDatasetInfo()

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/dataset-info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 3, stats["num_crops"])
	assert.EqualValues(t, 30, stats["num_samples"])
}
