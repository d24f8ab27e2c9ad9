package recommend

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/artifacts"
	"github.com/user/cropadvisor-go/auth"
	"github.com/user/cropadvisor-go/classifier"
	"github.com/user/cropadvisor-go/cropinfo"
	"github.com/user/cropadvisor-go/logging"
	"github.com/user/cropadvisor-go/metrics"
	"github.com/user/cropadvisor-go/validation"
)

// probabilityTolerance bounds how far a distribution may sum away from 1.
const probabilityTolerance = 1e-6

// descriptionColumn is the optional crop table column copied into recommendations.
const descriptionColumn = "description"

// Predictor returns a probability for every class index.
type Predictor interface {
	PredictProba(x []float64) ([]float64, error)
}

// Labeler maps class indices to crop names.
type Labeler interface {
	Len() int
	Decode(i int) (string, error)
	Classes() []string
}

// Service answers recommendation queries. It holds no mutable state.
type Service struct {
	model  Predictor
	labels Labeler
	crops  *cropinfo.Table
	info   classifier.TrainingInfo
}

// NewService builds a service over a loaded inference context.
func NewService(ictx *artifacts.InferenceContext) *Service {
	return &Service{
		model:  ictx.Model,
		labels: ictx.Encoder,
		crops:  ictx.Crops,
		info:   ictx.Model.Info,
	}
}

// Recommend ranks crops for the feature vector in body. identity must be non-nil; an
// anonymous call fails before the body is even parsed.
func (s *Service) Recommend(ctx context.Context, identity *auth.Identity, body []byte) (*RecommendResponse, error) {
	if identity == nil {
		return nil, apperror.NewAuthError("Authentication required", nil)
	}

	var echo map[string]any
	if err := json.Unmarshal(body, &echo); err != nil || echo == nil {
		return nil, apperror.NewBadRequestError("Request body must be a JSON object", err)
	}
	var req RecommendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperror.NewValidationError("Features N, P, K, temperature, humidity, ph and rainfall must be numbers", err)
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, verr.ToAppError()
	}

	recs, err := s.rank(req.features())
	if err != nil {
		metrics.RecommendationErrors.Inc()
		logging.Ctx(ctx).Error().Err(err).Int64("user_id", identity.UserID).Msg("recommendation failed")
		return nil, apperror.NewInternalError("recommendation failed", err)
	}
	if len(recs) > 0 {
		metrics.RecordRecommendation(recs[0].Crop)
	}

	return &RecommendResponse{Success: true, Recommendations: recs, UserInputs: echo}, nil
}

func (s *Service) rank(x []float64) ([]Recommendation, error) {
	proba, err := s.model.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(proba) != s.labels.Len() {
		return nil, fmt.Errorf("model returned %d probabilities for %d labels", len(proba), s.labels.Len())
	}
	if err := checkDistribution(proba); err != nil {
		return nil, err
	}

	top := TopK(proba, TopN)
	recs := make([]Recommendation, len(top))
	for i, idx := range top {
		crop, err := s.labels.Decode(idx)
		if err != nil {
			return nil, err
		}
		recs[i] = Recommendation{Crop: crop, Score: proba[idx], Description: s.describe(crop)}
	}
	return recs, nil
}

func (s *Service) describe(crop string) string {
	if s.crops == nil {
		return ""
	}
	rec, ok := s.crops.Lookup(crop)
	if !ok {
		return ""
	}
	if d, ok := rec[descriptionColumn].(string); ok {
		return d
	}
	return ""
}

func checkDistribution(proba []float64) error {
	for i, p := range proba {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("invalid probability %v for class %d", p, i)
		}
	}
	if sum := floats.Sum(proba); math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("probabilities sum to %v", sum)
	}
	return nil
}

// TopK returns the indices of the k largest probabilities, highest first. Equal
// probabilities are ordered by ascending index.
func TopK(proba []float64, k int) []int {
	idx := make([]int, len(proba))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		if c := cmp.Compare(proba[b], proba[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return idx[:min(k, len(idx))]
}

// CropDetails returns every column of the crop table row for name.
func (s *Service) CropDetails(name string) (cropinfo.Record, error) {
	key := cropinfo.Normalize(name)
	if key == "" {
		return nil, apperror.NewBadRequestError("Crop name required", nil)
	}
	rec, ok := s.crops.Lookup(key)
	if !ok {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("Details for %s not found", key), nil)
	}
	return rec, nil
}

// DatasetInfo reports the training metadata stored with the model.
func (s *Service) DatasetInfo() DatasetInfoResponse {
	classes := s.labels.Classes()
	return DatasetInfoResponse{
		Success: true,
		Stats: DatasetStats{
			NumSamples:   s.info.Samples,
			NumCrops:     len(classes),
			ExampleCrops: classes[:min(3, len(classes))],
			Source:       s.info.Source,
		},
	}
}
