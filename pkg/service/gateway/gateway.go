package gateway

import (
	"context"
	"strings"

	"github.com/m-mizutani/conceptstudio/pkg/adapter"
	"github.com/m-mizutani/conceptstudio/pkg/interfaces"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/utils/extract"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const (
	emptyTextFallback     = "No response generated."
	emptyAnalysisFallback = "Analysis failed."
)

var _ interfaces.ModelGateway = (*Gateway)(nil)

// Gateway implements interfaces.ModelGateway on top of Gemini. It keeps no
// state between calls.
type Gateway struct {
	gemini     adapter.Gemini
	directives *Directives
}

// Option is a functional option for Gateway
type Option func(*Gateway)

// WithDirectives replaces the built-in directives
func WithDirectives(d *Directives) Option {
	return func(g *Gateway) {
		g.directives = d
	}
}

// New creates a new Gateway
func New(gemini adapter.Gemini, opts ...Option) *Gateway {
	g := &Gateway{
		gemini:     gemini,
		directives: DefaultDirectives(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Gateway) GenerateText(ctx context.Context, prompt string, modelID model.ModelID) (string, error) {
	text, err := g.generate(ctx, modelID, g.directives.Text, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if text == "" {
		return emptyTextFallback, nil
	}
	return text, nil
}

func (g *Gateway) GenerateHTML(ctx context.Context, prompt string, modelID model.ModelID) (string, error) {
	text, err := g.generate(ctx, modelID, g.directives.HTML, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return extract.HTML(text), nil
}

func (g *Gateway) AnalyzeImage(ctx context.Context, prompt string, image *model.Image) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", goerr.New("image data is required")
	}

	d := g.directives.Analysis
	if strings.TrimSpace(prompt) == "" {
		prompt = d.Prompt
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image.Data, image.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	text, err := g.generate(ctx, model.AnalysisModel, d, contents)
	if err != nil {
		return "", err
	}
	if text == "" {
		return emptyAnalysisFallback, nil
	}
	return text, nil
}

func (g *Gateway) Refine(ctx context.Context, original, instructions string, kind model.Kind, modelID model.ModelID) (string, error) {
	d := g.directives.RefineText
	if kind == model.KindHTML {
		d = g.directives.RefineHTML
	}

	prompt := "ORIGINAL CONTENT:\n" + original + "\n\nREFINEMENT INSTRUCTIONS:\n" + instructions

	text, err := g.generate(ctx, modelID, d, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if kind == model.KindHTML {
		return extract.HTML(text), nil
	}
	return text, nil
}

func (g *Gateway) generate(ctx context.Context, modelID model.ModelID, d Directive, contents []*genai.Content) (string, error) {
	logger := logging.From(ctx).With("model", modelID)
	logger.Debug("sending generation request")

	resp, err := g.gemini.GenerateContent(ctx, string(modelID), contents, d.config())
	if err != nil {
		return "", NewRequestError(modelID, err)
	}

	text := responseText(resp)
	logger.Debug("received generation response", "length", len(text))
	return text, nil
}

// responseText joins the text parts of the first candidate, skipping thoughts
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
