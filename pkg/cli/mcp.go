package cli

import (
	"context"

	"github.com/m-mizutani/conceptstudio/pkg/service/mcp"
	"github.com/urfave/cli/v3"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func mcpCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the studio as MCP tools over stdio",
		Flags: allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout carries the protocol, logs go to stderr
			ctx, logger, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			uc, closeStudio, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeStudio()

			logger.Info("mcp server started", "version", Version)
			return mcp.NewServer(uc, Version).Run(ctx, &sdk.StdioTransport{})
		},
	}
}
