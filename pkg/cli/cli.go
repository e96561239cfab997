package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Version is reported by the MCP server and the version flag
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "conceptstudio",
		Usage:   "Creative workspace for text, web page concepts and image analysis with Gemini",
		Version: Version,
		Commands: []*cli.Command{
			serveCommand(),
			generateCommand(),
			shellCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
