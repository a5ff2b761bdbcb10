package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/rileyhilliard/streamwatch/internal/chart"
	"github.com/rileyhilliard/streamwatch/internal/config"
	"github.com/rileyhilliard/streamwatch/internal/dashboard"
	"github.com/rileyhilliard/streamwatch/internal/errors"
	"github.com/rileyhilliard/streamwatch/internal/logger"
	"github.com/rileyhilliard/streamwatch/internal/stream"
	"github.com/rileyhilliard/streamwatch/internal/ui"
)

const (
	formatText = "text"

	defaultRenderTimeout = time.Minute

	// stateCheckInterval is how often collect looks for a manager that has
	// given up reconnecting.
	stateCheckInterval = 100 * time.Millisecond
)

var errGaveUp = stderrors.New("gave up reconnecting")

type renderOptions struct {
	Host    string
	Port    int
	Samples int
	Timeout time.Duration
	Format  string
	Output  string
	Cols    int
	Rows    int

	// progress is told the window size after every sample.
	progress func(have, want int)
}

// renderCommand collects samples and writes a single chart.
func renderCommand(ctx context.Context, opts renderOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := overrideStream(&cfg.Stream, opts.Host, opts.Port); err != nil {
		return err
	}

	ep := endpointFor(cfg.Stream)
	composer, err := newComposer(cfg, ep, logger.NewEnvLogger("[stream]"))
	if err != nil {
		return err
	}

	var spin *ui.Spinner
	if term.IsTerminal(int(os.Stderr.Fd())) {
		label := "Collecting samples from " + ep.String()
		spin = ui.NewSpinner(os.Stderr, label)
		opts.progress = func(have, want int) {
			spin.SetLabel(fmt.Sprintf("%s (%d/%d)", label, have, want))
		}
		spin.Start()
	}

	scene, format, err := collectScene(ctx, composer, ep.String(), opts)
	if spin != nil {
		if err != nil {
			spin.Fail()
		} else {
			spin.Success()
		}
	}
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(opts.Output)
	if err != nil {
		return err
	}
	if err := writeScene(out, scene, format, opts); err != nil {
		closeOut(false)
		return err
	}
	closeOut(true)

	if opts.Output != "" {
		fmt.Fprintln(os.Stderr, ui.Success("Wrote "+opts.Output))
	}
	return nil
}

// renderTo collects a scene and writes it to w.
func renderTo(ctx context.Context, w io.Writer, composer *dashboard.Composer, where string, opts renderOptions) error {
	scene, format, err := collectScene(ctx, composer, where, opts)
	if err != nil {
		return err
	}
	return writeScene(w, scene, format, opts)
}

// collectScene starts composer, collects until the window holds
// opts.Samples samples or the timeout passes, and returns the scene as it
// stood before stopping.
func collectScene(ctx context.Context, composer *dashboard.Composer, where string, opts renderOptions) (chart.Scene, string, error) {
	format, err := parseRenderFormat(opts.Format)
	if err != nil {
		return chart.Scene{}, "", err
	}
	if opts.Samples < 1 {
		return chart.Scene{}, "", errors.New(errors.ErrConfig,
			"--samples must be at least 1",
			"Try --samples 30")
	}
	want := min(opts.Samples, composer.Capacity())

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	composer.Start()
	defer composer.Stop()

	collectErr := collect(ctx, composer, want, opts.progress)

	scene := composer.Scene()
	if scene.Empty() {
		cause := collectErr
		if cause == nil {
			cause = composer.Manager().LastError()
		}
		e := errors.New(errors.ErrStream,
			fmt.Sprintf("No samples arrived from %s", where),
			"Check the producer is running, e.g. 'streamwatch simulate', and that --host and --port point at it")
		e.Cause = cause
		return chart.Scene{}, "", e
	}
	return scene, format, nil
}

func writeScene(w io.Writer, scene chart.Scene, format string, opts renderOptions) error {
	if format == formatText {
		text := chart.RenderTerminal(scene, opts.Cols, opts.Rows)
		if text == "" {
			return errors.New(errors.ErrRender,
				fmt.Sprintf("A %dx%d text chart is too small to draw", opts.Cols, opts.Rows),
				"Use larger --cols and --rows")
		}
		_, err := fmt.Fprintln(w, text)
		return err
	}
	return chart.Export(w, scene, chart.Format(format))
}

// collect runs the dispatch loop until the window holds want samples, ctx
// ends, or the manager stops retrying. Running out of time is not an error:
// whatever arrived is rendered.
func collect(ctx context.Context, composer *dashboard.Composer, want int, progress func(have, want int)) error {
	m := composer.Manager()
	ticker := time.NewTicker(stateCheckInterval)
	defer ticker.Stop()

	for composer.Len() < want {
		select {
		case ev := <-m.Samples():
			if composer.Dispatch(ev) && progress != nil {
				progress(composer.Len(), want)
			}
		case ev := <-m.Anomalies():
			composer.Dispatch(ev)
		case <-ticker.C:
			if m.State() == stream.StateDisconnected {
				if err := m.LastError(); err != nil {
					return err
				}
				return errGaveUp
			}
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

func parseRenderFormat(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == formatText {
		return formatText, nil
	}
	f, err := chart.ParseFormat(s)
	if err != nil {
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown format %q", s),
			"Use one of: text, svg, png")
	}
	return string(f), nil
}

// openOutput returns stdout for an empty path. The close func removes a
// partially written file when ok is false.
func openOutput(path string) (io.Writer, func(ok bool), error) {
	if path == "" || path == "-" {
		return os.Stdout, func(bool) {}, nil
	}

	path = config.ExpandTilde(path)
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrRender,
			"Cannot create "+path,
			"Check the directory exists and is writable")
	}
	return f, func(ok bool) {
		_ = f.Close()
		if !ok {
			_ = os.Remove(path)
		}
	}, nil
}
