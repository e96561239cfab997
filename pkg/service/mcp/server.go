package mcp

import (
	"context"
	"encoding/base64"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/conceptstudio/pkg/utils/imagefile"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

// Server exposes the studio operations as MCP tools
type Server struct {
	studio *studio.UseCase
	server *mcp.Server
}

type generateParams struct {
	Prompt string `json:"prompt" jsonschema:"What to generate"`
	Model  string `json:"model,omitempty" jsonschema:"Model variant: gemini-3-flash-preview (default) or gemini-3-pro-preview"`
}

type analyzeParams struct {
	Path     string `json:"path,omitempty" jsonschema:"Local path of the image file"`
	Data     string `json:"data,omitempty" jsonschema:"Base64 encoded image, used when path is empty"`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"MIME type of data, e.g. image/png"`
	Prompt   string `json:"prompt,omitempty" jsonschema:"Optional question about the image"`
}

type refineParams struct {
	ID           string `json:"id" jsonschema:"ID of the text or html result to refine"`
	Instructions string `json:"instructions" jsonschema:"How the result should change"`
}

type emptyParams struct{}

// NewServer creates a new MCP server backed by uc
func NewServer(uc *studio.UseCase, version string) *Server {
	s := &Server{
		studio: uc,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "conceptstudio",
			Version: version,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_text",
		Description: "Generate a creative text response for the prompt",
	}, s.generateText)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_html",
		Description: "Generate a self-contained single-file HTML web page concept for the prompt",
	}, s.generateHTML)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_image",
		Description: "Describe an image and answer an optional question about it",
	}, s.analyzeImage)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refine_result",
		Description: "Create a new version of an existing text or html result following the instructions",
	}, s.refineResult)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_results",
		Description: "List all results of this session, newest first",
	}, s.listResults)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_results",
		Description: "Remove every result of this session",
	}, s.clearResults)

	return s
}

// Run serves MCP requests on transport until the client disconnects
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.server.Run(ctx, transport); err != nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

// Connect starts a session on transport without blocking
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, transport, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect mcp session")
	}
	return session, nil
}

func (s *Server) generateText(ctx context.Context, req *mcp.CallToolRequest, params *generateParams) (*mcp.CallToolResult, any, error) {
	return s.generate(ctx, studio.GenerationInput{
		Text:  params.Prompt,
		Kind:  model.KindText,
		Model: model.ModelID(params.Model),
	})
}

func (s *Server) generateHTML(ctx context.Context, req *mcp.CallToolRequest, params *generateParams) (*mcp.CallToolResult, any, error) {
	return s.generate(ctx, studio.GenerationInput{
		Text:  params.Prompt,
		Kind:  model.KindHTML,
		Model: model.ModelID(params.Model),
	})
}

func (s *Server) analyzeImage(ctx context.Context, req *mcp.CallToolRequest, params *analyzeParams) (*mcp.CallToolResult, any, error) {
	var image *model.Image
	switch {
	case params.Path != "":
		img, err := imagefile.Load(params.Path)
		if err != nil {
			return nil, nil, err
		}
		image = img

	case params.Data != "":
		data, err := base64.StdEncoding.DecodeString(params.Data)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "image data is not valid base64")
		}
		mimeType := params.MIMEType
		if mimeType == "" {
			mimeType = imagefile.DetectMIMEType("", data)
		}
		image = &model.Image{Data: data, MIMEType: mimeType}

	default:
		return nil, nil, goerr.New("either path or data is required")
	}

	return s.generate(ctx, studio.GenerationInput{
		Text:  params.Prompt,
		Kind:  model.KindAnalysis,
		Image: image,
	})
}

func (s *Server) refineResult(ctx context.Context, req *mcp.CallToolRequest, params *refineParams) (*mcp.CallToolResult, any, error) {
	result, err := s.studio.SubmitRefinement(ctx, model.ResultID(params.ID), params.Instructions)
	if err != nil {
		return nil, nil, err
	}
	return resultContent(result)
}

func (s *Server) listResults(ctx context.Context, req *mcp.CallToolRequest, params *emptyParams) (*mcp.CallToolResult, any, error) {
	snap, err := s.studio.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	raw, err := yaml.Marshal(snap.Results)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to encode results")
	}
	return textContent(string(raw)), nil, nil
}

func (s *Server) clearResults(ctx context.Context, req *mcp.CallToolRequest, params *emptyParams) (*mcp.CallToolResult, any, error) {
	if err := s.studio.Clear(ctx); err != nil {
		return nil, nil, err
	}
	return textContent("All results were removed."), nil, nil
}

func (s *Server) generate(ctx context.Context, input studio.GenerationInput) (*mcp.CallToolResult, any, error) {
	result, err := s.studio.SubmitGeneration(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return resultContent(result)
}

// resultContent returns the metadata of result followed by its output
func resultContent(result *model.Result) (*mcp.CallToolResult, any, error) {
	meta, err := yaml.Marshal(map[string]any{
		"id":    result.ID,
		"kind":  result.Kind,
		"model": result.Model,
	})
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to encode result")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(meta)},
			&mcp.TextContent{Text: result.Output},
		},
	}, nil, nil
}

func textContent(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
