package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidKind  = goerr.New("invalid result kind")
	ErrInvalidModel = goerr.New("invalid model")
)

type ResultID string

// NewResultID generates a new unique ResultID
func NewResultID() ResultID {
	return ResultID(uuid.New().String())
}

// Kind is the category of a request and of the result it produced
type Kind string

const (
	KindText     Kind = "text"
	KindAnalysis Kind = "analysis"
	KindHTML     Kind = "html"
)

// Validate checks if the kind is valid
func (k Kind) Validate() error {
	switch k {
	case KindText, KindAnalysis, KindHTML:
		return nil
	default:
		return goerr.Wrap(ErrInvalidKind, "unknown kind", goerr.V("kind", k))
	}
}

// Refinable reports whether results of this kind accept refinement instructions
func (k Kind) Refinable() bool {
	return k == KindText || k == KindHTML
}

// ModelID identifies a remote model variant
type ModelID string

const (
	// ModelFlash is the fast, low-latency variant
	ModelFlash ModelID = "gemini-3-flash-preview"
	// ModelPro is the higher-quality variant
	ModelPro ModelID = "gemini-3-pro-preview"

	// DefaultModel is used when a request does not name a model
	DefaultModel = ModelFlash
	// AnalysisModel serves every image analysis regardless of the requested model
	AnalysisModel = ModelFlash
)

// Validate checks if the model is one of the supported variants
func (m ModelID) Validate() error {
	switch m {
	case ModelFlash, ModelPro:
		return nil
	default:
		return goerr.Wrap(ErrInvalidModel, "unsupported model", goerr.V("model", m))
	}
}

// Image is inline image data uploaded for analysis
type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// Result is one generation or refinement outcome. It is never modified after creation.
type Result struct {
	ID        ResultID  `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Kind      Kind      `json:"kind" yaml:"kind"`
	Input     string    `json:"input" yaml:"input"`
	Output    string    `json:"output" yaml:"output"`
	Model     ModelID   `json:"model" yaml:"model"`
}
