package gateway

import (
	_ "embed"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed prompt/text.md
	textPrompt string
	//go:embed prompt/html.md
	htmlPrompt string
	//go:embed prompt/refine_text.md
	refineTextPrompt string
	//go:embed prompt/refine_html.md
	refineHTMLPrompt string
	//go:embed prompt/analysis.md
	analysisPrompt string
)

// Directive is the system instruction and sampling setup of one operation.
// Prompt is the user instruction used when the caller gives none.
type Directive struct {
	System      string   `yaml:"system,omitempty"`
	Prompt      string   `yaml:"prompt,omitempty"`
	Temperature *float32 `yaml:"temperature,omitempty"`
	TopP        *float32 `yaml:"top_p,omitempty"`
}

func (d Directive) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: d.Temperature,
		TopP:        d.TopP,
	}
	if d.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(d.System, "")
	}
	return cfg
}

// merge returns d with every field set in override replaced
func (d Directive) merge(override Directive) Directive {
	if override.System != "" {
		d.System = override.System
	}
	if override.Prompt != "" {
		d.Prompt = override.Prompt
	}
	if override.Temperature != nil {
		d.Temperature = override.Temperature
	}
	if override.TopP != nil {
		d.TopP = override.TopP
	}
	return d
}

// Directives holds the per-operation directives of the gateway
type Directives struct {
	Text       Directive `yaml:"text"`
	HTML       Directive `yaml:"html"`
	Analysis   Directive `yaml:"analysis"`
	RefineText Directive `yaml:"refine_text"`
	RefineHTML Directive `yaml:"refine_html"`
}

// DefaultDirectives returns the built-in directives. Text generation samples
// with a high temperature; HTML and refinement stay close to deterministic.
func DefaultDirectives() *Directives {
	return &Directives{
		Text: Directive{
			System:      strings.TrimSpace(textPrompt),
			Temperature: genai.Ptr(float32(0.8)),
			TopP:        genai.Ptr(float32(0.95)),
		},
		HTML: Directive{
			System:      strings.TrimSpace(htmlPrompt),
			Temperature: genai.Ptr(float32(0.3)),
		},
		Analysis: Directive{
			Prompt: strings.TrimSpace(analysisPrompt),
		},
		RefineText: Directive{
			System:      strings.TrimSpace(refineTextPrompt),
			Temperature: genai.Ptr(float32(0.3)),
		},
		RefineHTML: Directive{
			System:      strings.TrimSpace(refineHTMLPrompt),
			Temperature: genai.Ptr(float32(0.3)),
		},
	}
}

// LoadDirectives reads a YAML file and applies it over the defaults. An empty
// path returns the defaults.
func LoadDirectives(filePath string) (*Directives, error) {
	d := DefaultDirectives()
	if filePath == "" {
		return d, nil
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read directives file", goerr.V("file", filePath))
	}

	var override Directives
	if err := yaml.Unmarshal(content, &override); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML directives", goerr.V("file", filePath))
	}

	d.Text = d.Text.merge(override.Text)
	d.HTML = d.HTML.merge(override.HTML)
	d.Analysis = d.Analysis.merge(override.Analysis)
	d.RefineText = d.RefineText.merge(override.RefineText)
	d.RefineHTML = d.RefineHTML.merge(override.RefineHTML)

	return d, nil
}
