package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/coursebuilder/internal/config"
	"git.home.luguber.info/inful/coursebuilder/internal/course"
	"git.home.luguber.info/inful/coursebuilder/internal/metrics"
	"git.home.luguber.info/inful/coursebuilder/internal/preview"
)

var CLI struct {
	Config  string `short:"c" help:"Course configuration file, relative to the course root" default:"config.yml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Dir        string `arg:"" optional:"" help:"Course root directory" default:"."`
		Output     string `short:"o" help:"Output directory for the built course" default:"./build"`
		Absolute   bool   `short:"a" help:"Emit absolute URLs under the web root instead of relative ones"`
		SingleFile string `short:"f" help:"Build a single source file as a standalone page"`
		NoPDF      bool   `help:"Skip PDF generation"`
		ForceTheme bool   `help:"Render each theme into its own subdirectory even for one theme"`
	} `cmd:"" help:"Build the course site"`

	Preview struct {
		Dir    string `arg:"" optional:"" help:"Course root directory" default:"."`
		Output string `short:"o" help:"Output directory for the built course" default:"./build"`
		Addr   string `help:"Listen address" default:"localhost:8000"`
		NoPDF  bool   `help:"Skip PDF generation"`
	} `cmd:"" help:"Serve the course locally and rebuild on changes"`

	Init struct {
		Dir   string `arg:"" optional:"" help:"Course root directory" default:"."`
		Force bool   `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write a starter course configuration"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch ctx.Command() {
	case "build", "build <dir>":
		err = runBuild()
	case "preview", "preview <dir>":
		err = runPreview()
	case "init", "init <dir>":
		err = runInit()
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadCourse(rootDir, outDir, singleFile string, opts course.Options, recorder metrics.Recorder) (*course.Course, error) {
	cfg, err := config.Load(rootDir, filepath.Join(rootDir, CLI.Config), singleFile)
	if err != nil {
		return nil, err
	}
	return course.New(cfg, rootDir, outDir, opts, recorder), nil
}

func runBuild() error {
	opts := course.Options{
		Absolute:   CLI.Build.Absolute,
		ForceTheme: CLI.Build.ForceTheme,
		NoPDF:      CLI.Build.NoPDF,
	}
	c, err := loadCourse(CLI.Build.Dir, CLI.Build.Output, CLI.Build.SingleFile, opts, nil)
	if err != nil {
		return err
	}
	return c.Build()
}

func runPreview() error {
	recorder := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	opts := course.Options{NoPDF: CLI.Preview.NoPDF}

	srv := &preview.Server{
		RootDir:  CLI.Preview.Dir,
		BuildDir: CLI.Preview.Output,
		Addr:     CLI.Preview.Addr,
		Metrics:  recorder.Handler(),
		Rebuild: func() error {
			// Fresh course per rebuild: the config may have changed too.
			c, err := loadCourse(CLI.Preview.Dir, CLI.Preview.Output, "", opts, recorder)
			if err != nil {
				return err
			}
			return c.Build()
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

const starterConfig = `title: A New Course
author: Someone
code: CO101
structure:
  - type: introduction
    source: index.md
  - type: chapter
    title: Getting Started
    source: getting-started.md
`

func runInit() error {
	path := filepath.Join(CLI.Init.Dir, CLI.Config)
	if _, err := os.Stat(path); err == nil && !CLI.Init.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return err
	}
	slog.Info("wrote starter configuration", "path", path)
	return nil
}
