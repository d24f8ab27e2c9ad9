package recommend

import (
	"io"
	"net/http"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/auth"
)

const maxRecommendBody = 64 << 10

// Handlers exposes the Service over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates the recommendation handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleRecommend godoc
// @Summary Recommend crops
// @Description Returns the three most likely crops for the given soil and climate values. Extra fields such as season are echoed back unchanged.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param features body recommend.RecommendRequest true "Soil and climate measurements"
// @Success 200 {object} recommend.RecommendResponse
// @Failure 400 {object} apperror.ErrorResponse "Missing or invalid feature"
// @Failure 401 {object} apperror.ErrorResponse "Authentication required"
// @Failure 500 {object} apperror.ErrorResponse "An internal error occurred"
// @Router /api/detailed-recommend [post]
func (h *Handlers) HandleRecommend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := auth.IdentityFromContext(r.Context())
		if identity == nil {
			auth.WriteError(w, r, apperror.NewAuthError("Authentication required", nil))
			return
		}

		defer r.Body.Close()
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecommendBody))
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("Could not read request body", err))
			return
		}

		resp, err := h.service.Recommend(r.Context(), identity, body)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleCropDetails godoc
// @Summary Crop details
// @Description Returns every column of the crop reference table for one crop. The name is trimmed and lower-cased before lookup.
// @Tags Recommendations
// @Produce json
// @Param crop query string true "Crop name"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperror.ErrorResponse "Crop name required"
// @Failure 404 {object} apperror.ErrorResponse "Details not found"
// @Router /api/crop-details [get]
func (h *Handlers) HandleCropDetails() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := h.service.CropDetails(r.URL.Query().Get("crop"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		rec["success"] = true
		auth.WriteJSON(w, http.StatusOK, rec)
	}
}

// HandleDatasetInfo godoc
// @Summary Dataset statistics
// @Description Describes the dataset the loaded model was trained on.
// @Tags Recommendations
// @Produce json
// @Success 200 {object} recommend.DatasetInfoResponse
// @Router /api/dataset-info [get]
func (h *Handlers) HandleDatasetInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.WriteJSON(w, http.StatusOK, h.service.DatasetInfo())
	}
}
