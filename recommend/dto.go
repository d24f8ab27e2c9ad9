// Package recommend serves crop recommendations, crop details and dataset statistics
// from the immutable inference context loaded at startup.
package recommend

// TopN is the number of crops returned by a recommendation.
const TopN = 3

// RecommendRequest is the validated view of the recommendation body. Pointers let a
// missing field be told apart from a zero.
type RecommendRequest struct {
	N           *float64 `json:"N" validate:"required,gte=0" example:"90"`
	P           *float64 `json:"P" validate:"required,gte=0" example:"42"`
	K           *float64 `json:"K" validate:"required,gte=0" example:"43"`
	Temperature *float64 `json:"temperature" validate:"required,gte=-50,lte=70" example:"20.8"`
	Humidity    *float64 `json:"humidity" validate:"required,gte=0,lte=100" example:"82"`
	Ph          *float64 `json:"ph" validate:"required,gte=0,lte=14" example:"6.5"`
	Rainfall    *float64 `json:"rainfall" validate:"required,gte=0" example:"202.9"`
}

// features returns the vector in training column order.
func (r *RecommendRequest) features() []float64 {
	return []float64{*r.N, *r.P, *r.K, *r.Temperature, *r.Humidity, *r.Ph, *r.Rainfall}
}

// Recommendation is one ranked crop.
type Recommendation struct {
	Crop        string  `json:"crop" example:"rice"`
	Score       float64 `json:"score" example:"0.92"`
	Description string  `json:"description" example:"Staple cereal grown in flooded fields"`
}

// RecommendResponse is the success body of the recommendation endpoint. UserInputs echoes
// the request body as sent, extra fields included.
type RecommendResponse struct {
	Success         bool             `json:"success" example:"true"`
	Recommendations []Recommendation `json:"recommendations"`
	UserInputs      map[string]any   `json:"user_inputs" swaggertype:"object"`
}

// DatasetStats describes the data the loaded model was trained on.
type DatasetStats struct {
	NumSamples   int      `json:"num_samples" example:"2200"`
	NumCrops     int      `json:"num_crops" example:"22"`
	ExampleCrops []string `json:"example_crops" example:"apple,banana,blackgram"`
	Source       string   `json:"source" example:"Crop_recommendation.csv"`
}

// DatasetInfoResponse is the body of the dataset info endpoint.
type DatasetInfoResponse struct {
	Success bool         `json:"success" example:"true"`
	Stats   DatasetStats `json:"stats"`
}
