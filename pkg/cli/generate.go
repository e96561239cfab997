package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/conceptstudio/pkg/utils/imagefile"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

func generateCommand() *cli.Command {
	var (
		cfg       config
		kind      string
		modelID   string
		imagePath string
		format    string
		output    string
	)

	flags := allFlags(&cfg,
		&cli.StringFlag{
			Name:        "kind",
			Aliases:     []string{"k"},
			Usage:       "Kind of output (text, html, analysis). Defaults to analysis when --image is given",
			Value:       string(model.KindText),
			Destination: &kind,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Model variant (" + string(model.ModelFlash) + ", " + string(model.ModelPro) + ")",
			Value:       string(model.DefaultModel),
			Destination: &modelID,
		},
		&cli.StringFlag{
			Name:        "image",
			Aliases:     []string{"i"},
			Usage:       "Image file to analyze",
			Destination: &imagePath,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format (text, yaml)",
			Value:       formatText,
			Destination: &format,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the output to a file instead of stdout",
			Destination: &output,
		},
	)

	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Run one generation and print the result",
		ArgsUsage: "<prompt>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			input := studio.GenerationInput{
				Text:  strings.Join(c.Args().Slice(), " "),
				Kind:  model.Kind(kind),
				Model: model.ModelID(modelID),
			}
			if imagePath != "" {
				img, err := imagefile.Load(imagePath)
				if err != nil {
					return err
				}
				input.Image = img
				if !c.IsSet("kind") {
					input.Kind = model.KindAnalysis
				}
			}

			uc, closeStudio, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeStudio()

			stop := startSpinner(c.Root().ErrWriter, "generating")
			result, err := uc.SubmitGeneration(ctx, input)
			stop()
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return goerr.Wrap(err, "failed to create output file", goerr.V("path", output))
				}
				defer f.Close()
				w = f
			}

			return writeResult(w, result, format)
		},
	}
}

// writeResult prints result as its bare output or as a YAML document
func writeResult(w io.Writer, result *model.Result, format string) error {
	switch format {
	case formatText, "":
		if _, err := fmt.Fprintln(w, result.Output); err != nil {
			return goerr.Wrap(err, "failed to write result")
		}
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return goerr.Wrap(err, "failed to encode result")
		}
		if err := enc.Close(); err != nil {
			return goerr.Wrap(err, "failed to encode result")
		}
	default:
		return goerr.New("unknown output format", goerr.V("format", format))
	}
	return nil
}

// startSpinner shows progress on w while a remote call runs and returns a function to stop it
func startSpinner(w io.Writer, message string) func() {
	if w == nil {
		w = os.Stderr
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message + "..."
	s.Start()
	return s.Stop
}
