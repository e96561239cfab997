package studio_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/conceptstudio/pkg/service/gateway"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/gt"
)

func TestRefinement(t *testing.T) {
	ctx := context.Background()
	gw := &mockGateway{output: "<p>hello</p>"}
	uc, store := setup(gw)

	target, err := uc.SubmitGeneration(ctx, studio.GenerationInput{
		Text:  "a greeting page",
		Kind:  model.KindHTML,
		Model: model.ModelPro,
	})
	gt.NoError(t, err)
	before := *target

	gw.output = "```html\n<p style=\"color:blue\">hello</p>\n```"
	refined, err := uc.SubmitRefinement(ctx, target.ID, "  make it blue ")
	gt.NoError(t, err)

	gt.Equal(t, refined.Input, "Refinement: make it blue")
	gt.Equal(t, refined.Kind, model.KindHTML)
	gt.Equal(t, refined.Model, model.ModelPro)
	gt.Equal(t, refined.Output, `<p style="color:blue">hello</p>`)
	gt.NotEqual(t, refined.ID, target.ID)

	call := gw.calls[1]
	gt.Equal(t, call.op, "refine")
	gt.Equal(t, call.prompt, "<p>hello</p>")
	gt.Equal(t, call.instructions, "make it blue")
	gt.Equal(t, call.kind, model.KindHTML)
	gt.Equal(t, call.model, model.ModelPro)

	list, err := store.List(ctx)
	gt.NoError(t, err)
	gt.A(t, list).Length(2)
	gt.Equal(t, list[0].ID, refined.ID)
	gt.Equal(t, *list[1], before)
}

func TestRefinementValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty instructions", func(t *testing.T) {
		gw := &mockGateway{output: "x"}
		uc, _ := setup(gw)
		target, err := uc.SubmitGeneration(ctx, studio.GenerationInput{Text: "t", Kind: model.KindText})
		gt.NoError(t, err)

		_, err = uc.SubmitRefinement(ctx, target.ID, " \n ")
		gt.True(t, errors.Is(err, studio.ErrInvalidInput))
		gt.Equal(t, gw.callCount(), 1)
	})

	t.Run("unknown target", func(t *testing.T) {
		gw := &mockGateway{output: "x"}
		uc, _ := setup(gw)

		_, err := uc.SubmitRefinement(ctx, model.ResultID("missing"), "more")
		gt.True(t, errors.Is(err, repository.ErrNotFound))
		gt.Equal(t, gw.callCount(), 0)
	})

	t.Run("analysis is not refinable", func(t *testing.T) {
		gw := &mockGateway{output: "a cat"}
		uc, _ := setup(gw)
		target, err := uc.SubmitGeneration(ctx, studio.GenerationInput{
			Kind:  model.KindAnalysis,
			Image: &model.Image{Data: []byte("img"), MIMEType: "image/jpeg"},
		})
		gt.NoError(t, err)

		_, err = uc.SubmitRefinement(ctx, target.ID, "more detail")
		gt.True(t, errors.Is(err, studio.ErrInvalidInput))
		gt.Equal(t, gw.callCount(), 1)
	})
}

func TestRefinementFailure(t *testing.T) {
	ctx := context.Background()
	gw := &mockGateway{output: "draft"}
	uc, store := setup(gw)

	target, err := uc.SubmitGeneration(ctx, studio.GenerationInput{Text: "t", Kind: model.KindText})
	gt.NoError(t, err)

	gw.err = errors.New("deadline exceeded")
	_, err = uc.SubmitRefinement(ctx, target.ID, "shorter")
	gt.Error(t, err)
	gt.Equal(t, uc.State().Err, "Refinement failed.")
	gt.False(t, uc.State().Busy)

	gw.err = gateway.NewRequestError(model.ModelFlash, errors.New("quota exceeded"))
	_, err = uc.SubmitRefinement(ctx, target.ID, "shorter")
	gt.Error(t, err)
	gt.Equal(t, uc.State().Err, "quota exceeded")

	var failure *studio.Failure
	gt.True(t, errors.As(err, &failure))
	gt.Equal(t, failure.Message, "quota exceeded")

	list, err := store.List(ctx)
	gt.NoError(t, err)
	gt.A(t, list).Length(1)
	gt.Equal(t, list[0].ID, target.ID)
}
