package tui

import (
	"context"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/render"
)

// Options configures Run.
type Options struct {
	In     io.Reader
	Out    io.Writer
	Styles render.Styles
	Logger *slog.Logger
	// Pipeline options applied to the controller, e.g. a generation hook.
	Pipeline []pipeline.Option
}

// Run starts the terminal UI against api and blocks until the user quits.
func Run(ctx context.Context, api pipeline.API, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var program *tea.Program
	ctrlOpts := append([]pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(func(pipeline.State) {
			// Send blocks until the event loop reads it, and some controller
			// calls run on the event loop itself.
			if program != nil {
				go program.Send(refreshMsg{})
			}
		}),
	}, opts.Pipeline...)
	ctrl := pipeline.New(api, ctrlOpts...)

	teaOpts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if opts.In != nil {
		teaOpts = append(teaOpts, tea.WithInput(opts.In))
	}
	if opts.Out != nil {
		teaOpts = append(teaOpts, tea.WithOutput(opts.Out))
	}

	program = tea.NewProgram(New(ctx, ctrl, opts.Styles), teaOpts...)
	_, err := program.Run()
	return err
}
