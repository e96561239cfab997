package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/conceptstudio/pkg/service/gateway"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/preference"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/conceptstudio/pkg/utils/imagefile"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const shellHelp = `Type a prompt to generate with the current kind and model.

  /kind text|html        switch the kind of output
  /model flash|pro       switch the model variant
  /image <path> [question]
                         analyze an image
  /refine <n|id> <instructions>
                         create a refined version of a text or html result
  /list                  list results, newest first
  /show <n|id>           print a result
  /save <n|id> [path]    write a result to a file
  /export <n|id>         upload an html result to the export bucket
  /clear                 remove all results
  /theme [light|dark]    show or change the studio theme
  /help                  show this help
  /exit                  leave the shell
`

var errResultNotFound = goerr.New("no such result")

func shellCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive studio session in the terminal",
		Flags: allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			uc, closeStudio, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeStudio()

			pref, closePref, err := cfg.newPreference(ctx)
			if err != nil {
				return err
			}
			defer closePref()

			sh := newShell(uc, pref, c.Root().Writer)
			sh.progress = c.Root().ErrWriter

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          sh.prompt(),
				AutoComplete:    shellCompleter(),
				InterruptPrompt: "^C",
				EOFPrompt:       "/exit",
				Stdout:          c.Root().Writer,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to start readline")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Concept Studio shell. Type /help for commands.\n")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if len(line) == 0 {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				if quit := sh.exec(ctx, line); quit {
					break
				}
				rl.SetPrompt(sh.prompt())
			}

			return nil
		},
	}
}

func shellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("/kind",
			readline.PcItem(string(model.KindText)),
			readline.PcItem(string(model.KindHTML)),
		),
		readline.PcItem("/model",
			readline.PcItem("flash"),
			readline.PcItem("pro"),
		),
		readline.PcItem("/image"),
		readline.PcItem("/refine"),
		readline.PcItem("/list"),
		readline.PcItem("/show"),
		readline.PcItem("/save"),
		readline.PcItem("/export"),
		readline.PcItem("/clear"),
		readline.PcItem("/theme",
			readline.PcItem(string(model.ThemeLight)),
			readline.PcItem(string(model.ThemeDark)),
		),
		readline.PcItem("/help"),
		readline.PcItem("/exit"),
	)
}

// shell interprets one line at a time against the studio
type shell struct {
	studio     *studio.UseCase
	preference *preference.UseCase
	out        io.Writer
	progress   io.Writer

	kind  model.Kind
	model model.ModelID
}

func newShell(uc *studio.UseCase, pref *preference.UseCase, out io.Writer) *shell {
	return &shell{
		studio:     uc,
		preference: pref,
		out:        out,
		kind:       model.KindText,
		model:      model.DefaultModel,
	}
}

func (s *shell) prompt() string {
	return fmt.Sprintf("%s/%s> ", s.kind, shortModelName(s.model))
}

func shortModelName(m model.ModelID) string {
	switch m {
	case model.ModelPro:
		return "pro"
	default:
		return "flash"
	}
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// exec runs one line and reports whether the shell should end
func (s *shell) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		s.report(ctx, s.generate(ctx, studio.GenerationInput{
			Text:  line,
			Kind:  s.kind,
			Model: s.model,
		}))
		return false
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch name {
	case "exit", "quit":
		return true
	case "help":
		s.printf("%s", shellHelp)
	case "kind":
		err = s.setKind(arg)
	case "model":
		err = s.setModel(arg)
	case "image":
		err = s.analyze(ctx, arg)
	case "refine":
		err = s.refine(ctx, arg)
	case "list":
		err = s.list(ctx)
	case "show":
		err = s.show(ctx, arg)
	case "save":
		err = s.save(ctx, arg)
	case "export":
		err = s.export(ctx, arg)
	case "clear":
		err = s.studio.Clear(ctx)
		if err == nil {
			s.printf("All results were removed.\n")
		}
	case "theme":
		err = s.theme(ctx, arg)
	default:
		err = goerr.Wrap(studio.ErrInvalidInput, "unknown command /"+name)
	}

	s.report(ctx, err)
	return false
}

// report prints err in the same words the browser studio would show
func (s *shell) report(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var (
		reqErr  *gateway.RequestError
		failure *studio.Failure
	)
	switch {
	case errors.As(err, &reqErr) && errors.As(err, &failure):
		s.printf("error: %s\n", failure.Message)
	case errors.As(err, &reqErr):
		s.printf("error: %s\n", reqErr.Message)
	case errors.Is(err, studio.ErrInvalidInput),
		errors.Is(err, studio.ErrBusy),
		errors.Is(err, studio.ErrExportDisabled),
		errors.Is(err, errResultNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, imagefile.ErrNotImage):
		s.printf("error: %s\n", err.Error())
	default:
		logging.From(ctx).Error("shell command failed", "error", err)
		s.printf("error: %s\n", err.Error())
	}
}

func (s *shell) setKind(arg string) error {
	kind := model.Kind(arg)
	if !kind.Refinable() {
		return goerr.Wrap(studio.ErrInvalidInput, "kind must be text or html. use /image for analysis")
	}
	s.kind = kind
	return nil
}

func (s *shell) setModel(arg string) error {
	switch arg {
	case "flash":
		s.model = model.ModelFlash
	case "pro":
		s.model = model.ModelPro
	default:
		m := model.ModelID(arg)
		if err := m.Validate(); err != nil {
			return goerr.Wrap(studio.ErrInvalidInput, "model must be flash or pro")
		}
		s.model = m
	}
	return nil
}

func (s *shell) generate(ctx context.Context, input studio.GenerationInput) error {
	stop := startSpinner(s.progress, "generating")
	result, err := s.studio.SubmitGeneration(ctx, input)
	stop()
	if err != nil {
		return err
	}
	s.printResult(1, result)
	return nil
}

func (s *shell) analyze(ctx context.Context, arg string) error {
	path, question, _ := strings.Cut(arg, " ")
	if path == "" {
		return goerr.Wrap(studio.ErrInvalidInput, "usage: /image <path> [question]")
	}

	img, err := imagefile.Load(path)
	if err != nil {
		return err
	}

	return s.generate(ctx, studio.GenerationInput{
		Text:  strings.TrimSpace(question),
		Kind:  model.KindAnalysis,
		Image: img,
	})
}

func (s *shell) refine(ctx context.Context, arg string) error {
	ref, instructions, _ := strings.Cut(arg, " ")
	target, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}

	stop := startSpinner(s.progress, "refining")
	result, err := s.studio.SubmitRefinement(ctx, target.ID, instructions)
	stop()
	if err != nil {
		return err
	}
	s.printResult(1, result)
	return nil
}

func (s *shell) list(ctx context.Context) error {
	snap, err := s.studio.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(snap.Results) == 0 {
		s.printf("No results yet.\n")
		return nil
	}

	for i, r := range snap.Results {
		s.printf("%2d  %s  %-8s  %s  %s\n", i+1, r.CreatedAt.Format("15:04:05"), r.Kind, shortID(r.ID), oneLine(r.Input, 60))
	}
	return nil
}

func (s *shell) show(ctx context.Context, ref string) error {
	r, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	s.printResult(0, r)
	return nil
}

func (s *shell) save(ctx context.Context, arg string) error {
	ref, path, _ := strings.Cut(arg, " ")
	r, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		if r.Kind != model.KindHTML {
			return goerr.Wrap(studio.ErrInvalidInput, "a file path is required for "+string(r.Kind)+" results")
		}
		path = studio.DownloadName(r.ID)
	}

	if err := os.WriteFile(filepath.Clean(path), []byte(r.Output), 0644); err != nil {
		return goerr.Wrap(err, "failed to save result", goerr.V("path", path))
	}
	s.printf("Saved to %s\n", path)
	return nil
}

func (s *shell) export(ctx context.Context, ref string) error {
	r, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}

	url, err := s.studio.Export(ctx, r.ID)
	if err != nil {
		return err
	}
	s.printf("Exported to %s\n", url)
	return nil
}

func (s *shell) theme(ctx context.Context, arg string) error {
	if arg != "" {
		theme := model.Theme(arg)
		if err := theme.Validate(); err != nil {
			return goerr.Wrap(studio.ErrInvalidInput, "theme must be light or dark")
		}
		if err := s.preference.SetTheme(ctx, theme); err != nil {
			return err
		}
	}
	s.printf("Theme: %s\n", s.preference.Theme())
	return nil
}

// resolve finds a result by its position in /list (1 is newest), its ID, or a unique ID prefix
func (s *shell) resolve(ctx context.Context, ref string) (*model.Result, error) {
	if ref == "" {
		return nil, goerr.Wrap(studio.ErrInvalidInput, "result number or id is required")
	}

	snap, err := s.studio.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(snap.Results) {
			return nil, goerr.Wrap(errResultNotFound, "result number out of range", goerr.V("number", n))
		}
		return snap.Results[n-1], nil
	}

	var found *model.Result
	for _, r := range snap.Results {
		if string(r.ID) == ref {
			return r, nil
		}
		if strings.HasPrefix(string(r.ID), ref) {
			if found != nil {
				return nil, goerr.Wrap(errResultNotFound, "ambiguous id prefix", goerr.V("prefix", ref))
			}
			found = r
		}
	}
	if found == nil {
		return nil, goerr.Wrap(errResultNotFound, "unknown result", goerr.V("ref", ref))
	}
	return found, nil
}

func (s *shell) printResult(n int, r *model.Result) {
	header := fmt.Sprintf("[%s] %s (%s)", r.Kind, shortID(r.ID), r.Model)
	if n > 0 {
		header = fmt.Sprintf("#%d %s", n, header)
	}
	s.printf("%s\n%s\n\n%s\n\n", header, r.Input, r.Output)
}

func shortID(id model.ResultID) string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-3]) + "..."
	}
	return s
}
