package studio

import (
	"context"
	"strings"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const refinementLabelPrefix = "Refinement: "

// SubmitRefinement derives a new result from the target and the instructions.
// The target itself is left untouched.
func (u *UseCase) SubmitRefinement(ctx context.Context, targetID model.ResultID, instructions string) (*model.Result, error) {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "refinement instructions are empty")
	}

	target, err := u.store.Get(ctx, targetID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get refinement target", goerr.V("result_id", targetID))
	}
	if !target.Kind.Refinable() {
		return nil, goerr.Wrap(ErrInvalidInput, "result kind cannot be refined",
			goerr.V("result_id", targetID),
			goerr.V("kind", target.Kind))
	}

	if err := u.acquire(); err != nil {
		return nil, err
	}

	result, err := u.refine(ctx, target, instructions)
	err = u.release(err, refinementFailedMessage)
	if err != nil {
		logging.From(ctx).Error("refinement failed", "target", targetID, "error", err)
		return nil, err
	}

	logging.From(ctx).Info("refinement created", "id", result.ID, "target", targetID)
	return result, nil
}

func (u *UseCase) refine(ctx context.Context, target *model.Result, instructions string) (*model.Result, error) {
	output, err := u.gateway.Refine(ctx, target.Output, instructions, target.Kind, target.Model)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to refine", goerr.V("result_id", target.ID))
	}

	result := &model.Result{
		ID:        model.NewResultID(),
		CreatedAt: u.now(),
		Kind:      target.Kind,
		Input:     refinementLabelPrefix + instructions,
		Output:    output,
		Model:     target.Model,
	}
	if err := u.store.Append(ctx, result); err != nil {
		return nil, goerr.Wrap(err, "failed to store result")
	}

	return result, nil
}
