package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"wtt/internal/capture"
	"wtt/internal/config"
	"wtt/internal/ics"
	appLog "wtt/internal/log"
	"wtt/internal/render"
	"wtt/internal/timetable"
	"wtt/internal/web"
)

var errHelp = errors.New("help provided")

// serveFunc is swapped out in tests.
var serveFunc = web.Serve

type commandLine struct {
	in  io.Reader
	out io.Writer

	capturer capture.Capturer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  serve   [-config PATH] [-listen ADDR]      run the timetable editor server")
	fmt.Fprintln(cli.out, "  summary [-compact] [VALUE|-]               print the availability summary")
	fmt.Fprintln(cli.out, "  grid    [-ranges] [VALUE|-]                print the weekly grid")
	fmt.Fprintln(cli.out, "  ics     [-anchor YYYY-MM-DD] [VALUE|-]     export weekly recurring events")
	fmt.Fprintln(cli.out, "  ics     -import FILE|-                     convert a calendar into a value")
	fmt.Fprintln(cli.out, "  capture -url URL -out FILE                 screenshot a read-only view")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "serve":
		return cli.serve(ctx, args[2:])
	case "summary":
		return cli.summary(args[2:])
	case "grid":
		return cli.grid(args[2:])
	case "ics":
		return cli.ics(args[2:])
	case "capture":
		return cli.capture(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	configPath := fs.String("config", "/etc/wtt/config.yaml", "Path to config file")
	listen := fs.String("listen", "", "HTTP listen address (overrides config if set)")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}

	conf, err := config.Load(*configPath)
	if err != nil {
		return errors.Wrapf(err, "load config %s", *configPath)
	}
	conf.ApplyEnv()
	// CLI --listen overrides config file and environment.
	if *listen != "" {
		conf.Listen = *listen
	}
	conf.Normalize()
	if err := conf.Validate(); err != nil {
		return err
	}

	if err := appLog.Init(appLog.Options{Level: appLog.ParseLevel(conf.LogLevel), Format: conf.LogFormat}); err != nil {
		return errors.Wrap(err, "init logger")
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"policy", conf.Policy,
		"session_ttl_minutes", conf.SessionTTLMinutes,
		"sweep", conf.SweepCron,
		"preset_count", len(conf.Presets),
		"capture", conf.Capture.Enabled,
		"basic_auth", conf.BasicAuth != nil,
	)

	var opts []web.Option
	if cli.capturer != nil {
		opts = append(opts, web.WithCapturer(cli.capturer))
	}
	return serveFunc(ctx, conf, opts...)
}

// readValue takes the first positional argument, or stdin for "-" or none.
func (cli *commandLine) readValue(fs *flag.FlagSet) (string, error) {
	arg := fs.Arg(0)
	if arg != "" && arg != "-" {
		return arg, nil
	}
	b, err := io.ReadAll(cli.in)
	if err != nil {
		return "", errors.Wrap(err, "read stdin")
	}
	return string(b), nil
}

func (cli *commandLine) summary(args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	compact := fs.Bool("compact", false, "Use short day names")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	text, err := cli.readValue(fs)
	if err != nil {
		return err
	}

	p := timetable.Load(text)
	if *compact {
		fmt.Fprintln(cli.out, p.SummarizeCompact())
	} else {
		fmt.Fprintln(cli.out, p.Summarize())
	}
	return nil
}

func (cli *commandLine) grid(args []string) error {
	fs := flag.NewFlagSet("grid", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	ranges := fs.Bool("ranges", false, "Print per-day ranges instead of the grid")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	text, err := cli.readValue(fs)
	if err != nil {
		return err
	}

	g := render.BuildGrid(timetable.Load(text), false)
	if *ranges {
		render.WriteRanges(cli.out, g)
	} else {
		render.WriteText(cli.out, g)
	}
	return nil
}

func (cli *commandLine) ics(args []string) error {
	fs := flag.NewFlagSet("ics", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	anchor := fs.String("anchor", "", "Any date (YYYY-MM-DD) in the week the events start")
	importPath := fs.String("import", "", "Calendar file to convert into a value ('-' for stdin)")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}

	if *importPath != "" {
		var (
			body []byte
			err  error
		)
		if *importPath == "-" {
			body, err = io.ReadAll(cli.in)
		} else {
			body, err = os.ReadFile(*importPath)
		}
		if err != nil {
			return errors.Wrap(err, "read calendar")
		}
		p, rep, err := ics.Import(body)
		if err != nil {
			return err
		}
		appLog.Debug("calendar imported", "events", rep.Events, "skipped", rep.Skipped)
		fmt.Fprintln(cli.out, p.String())
		return nil
	}

	var opts ics.ExportOptions
	if *anchor != "" {
		t, err := time.ParseInLocation("2006-01-02", *anchor, ics.Seoul)
		if err != nil {
			return errors.Wrap(err, "parse -anchor")
		}
		opts.Anchor = t
	}
	text, err := cli.readValue(fs)
	if err != nil {
		return err
	}
	_, err = io.WriteString(cli.out, ics.Export(timetable.Load(text), opts))
	return err
}

func (cli *commandLine) capture(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	target := fs.String("url", "", "Page to capture, e.g. http://127.0.0.1:8080/view?value=...")
	out := fs.String("out", "preview.png", "Output PNG path")
	width := fs.Int("width", capture.DefaultWidth, "Viewport width")
	height := fs.Int("height", capture.DefaultHeight, "Viewport height")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	if strings.TrimSpace(*target) == "" {
		fs.Usage()
		return errHelp
	}

	c := cli.capturer
	if c == nil {
		c = capture.Chromium{}
	}
	png, err := c.CapturePNG(ctx, capture.Options{URL: *target, Width: *width, Height: *height})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, png, 0o644); err != nil {
		return errors.Wrap(err, "write PNG")
	}
	appLog.Info("preview captured", "out", *out, "bytes", len(png))
	return nil
}
