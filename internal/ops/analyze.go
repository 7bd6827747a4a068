package ops

import (
	"context"
	"io"

	"github.com/platescan/platescan/internal/analyze"
	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/history"
	"github.com/platescan/platescan/internal/meal"
)

// Analyzer uploads one image to the analysis service.
// *analyze.Client implements it.
type Analyzer interface {
	Analyze(ctx context.Context, image io.Reader, filename string) (*analyze.Result, error)
}

// AnalyzeInput contains parameters for the Analyze operation.
type AnalyzeInput struct {
	Image    io.Reader
	Filename string // default: photo-<unix ms>.jpg
	Photo    string // reference stored on the meal, e.g. the local file path
	Save     bool   // also add the meal to history
}

// AnalyzeOutput contains the result of the Analyze operation.
type AnalyzeOutput struct {
	Meal      meal.Meal `json:"meal" yaml:"meal"`
	SavedID   string    `json:"saved_id,omitempty" yaml:"saved_id,omitempty"`
	RequestID string    `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

// Analyze uploads the image, normalizes the reply and optionally saves the meal.
// Upload failures are returned as-is and leave history untouched.
func Analyze(ctx context.Context, client Analyzer, store *history.Store, input AnalyzeInput) (*AnalyzeOutput, error) {
	if client == nil {
		return nil, errors.NewInvalidRequest("analysis client is not configured")
	}
	if input.Image == nil {
		return nil, errors.NewInvalidRequest("image is required")
	}
	if input.Save && store == nil {
		return nil, errors.NewInvalidRequest("save requested without a history store")
	}

	res, err := client.Analyze(ctx, input.Image, input.Filename)
	if err != nil {
		return nil, err
	}

	output := &AnalyzeOutput{
		Meal:      meal.Normalize(res.Body, input.Photo, now()),
		RequestID: res.RequestID,
	}
	if input.Save {
		saved := store.Save(output.Meal, now())
		output.SavedID = saved.ID
	}
	return output, nil
}
