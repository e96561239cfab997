package studio

import (
	"context"
	"strings"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	imageAnalysisLabel = "Image Analysis"
	customRequestLabel = "Custom Request"
)

// GenerationInput is a request submitted from the form
type GenerationInput struct {
	Text  string
	Kind  model.Kind
	Image *model.Image
	Model model.ModelID
}

func (x *GenerationInput) validate() error {
	if err := x.Kind.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidInput, "invalid kind", goerr.V("kind", x.Kind))
	}
	if err := x.Model.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidInput, "invalid model", goerr.V("model", x.Model))
	}

	hasText := strings.TrimSpace(x.Text) != ""
	hasImage := x.Image != nil && len(x.Image.Data) > 0

	switch x.Kind {
	case model.KindAnalysis:
		if !hasImage {
			return goerr.Wrap(ErrInvalidInput, "image is required for analysis")
		}
	default:
		if !hasText {
			return goerr.Wrap(ErrInvalidInput, "prompt is empty", goerr.V("kind", x.Kind))
		}
	}
	return nil
}

func (x *GenerationInput) label() string {
	switch {
	case strings.TrimSpace(x.Text) != "":
		return x.Text
	case x.Image != nil:
		return imageAnalysisLabel
	default:
		return customRequestLabel
	}
}

// SubmitGeneration runs one generation and stores its result at the head of
// the list. Invalid input is rejected without contacting the model.
func (u *UseCase) SubmitGeneration(ctx context.Context, input GenerationInput) (*model.Result, error) {
	if input.Model == "" {
		input.Model = model.DefaultModel
	}
	if input.Kind != model.KindAnalysis {
		input.Image = nil
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	if err := u.acquire(); err != nil {
		return nil, err
	}

	result, err := u.generate(ctx, input)
	err = u.release(err, generationFailedMessage)
	if err != nil {
		logging.From(ctx).Error("generation failed", "kind", input.Kind, "error", err)
		return nil, err
	}

	logging.From(ctx).Info("result created", "id", result.ID, "kind", result.Kind, "model", result.Model)
	return result, nil
}

func (u *UseCase) generate(ctx context.Context, input GenerationInput) (*model.Result, error) {
	var (
		output  string
		modelID = input.Model
		err     error
	)

	switch input.Kind {
	case model.KindAnalysis:
		modelID = model.AnalysisModel
		output, err = u.gateway.AnalyzeImage(ctx, input.Text, input.Image)
	case model.KindHTML:
		output, err = u.gateway.GenerateHTML(ctx, input.Text, input.Model)
	default:
		output, err = u.gateway.GenerateText(ctx, input.Text, input.Model)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate", goerr.V("kind", input.Kind))
	}

	result := &model.Result{
		ID:        model.NewResultID(),
		CreatedAt: u.now(),
		Kind:      input.Kind,
		Input:     input.label(),
		Output:    output,
		Model:     modelID,
	}
	if err := u.store.Append(ctx, result); err != nil {
		return nil, goerr.Wrap(err, "failed to store result")
	}

	return result, nil
}
