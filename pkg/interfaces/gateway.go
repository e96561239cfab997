package interfaces

import (
	"context"

	"github.com/m-mizutani/conceptstudio/pkg/model"
)

// ModelGateway issues one remote generation call per operation
type ModelGateway interface {
	// GenerateText expands a brief into free-form text
	GenerateText(ctx context.Context, prompt string, modelID model.ModelID) (string, error)

	// GenerateHTML asks for a single self-contained HTML document
	GenerateHTML(ctx context.Context, prompt string, modelID model.ModelID) (string, error)

	// AnalyzeImage describes an inline image, optionally guided by prompt
	AnalyzeImage(ctx context.Context, prompt string, image *model.Image) (string, error)

	// Refine rewrites a previous output according to instructions, preserving its kind
	Refine(ctx context.Context, original, instructions string, kind model.Kind, modelID model.ModelID) (string, error)
}
