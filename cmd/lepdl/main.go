package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"

	"github.com/umputun/lepdl/pkg/archive"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"LEPDL_CONFIG" description:"config file (yaml)"`

	Download DownloadCmd `command:"download" description:"download episodes of the archive"`
	Parse    ParseCmd    `command:"parse" description:"parse the archive and save the episode database"`
	Serve    ServeCmd    `command:"serve" description:"publish the episode database over http"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

// DownloadCmd selects episodes and downloads their media
type DownloadCmd struct {
	Episode string `short:"e" long:"episode" description:"episode number or range: 5, 5-10, 700-, -10"`
	Start   string `short:"S" long:"start" description:"first episode date, YYYY-MM-DD"`
	End     string `short:"E" long:"end" description:"last episode date, YYYY-MM-DD"`
	Last    bool   `long:"last" description:"only the last episode"`
	WithPDF bool   `long:"with-pdf" description:"download pdf files too"`
	Dest    string `short:"d" long:"dest" env:"LEPDL_DEST" description:"destination directory"`
	DB      string `long:"db" env:"LEPDL_DB" description:"episode database: json file, sqlite .db file or http(s) url"`
	Save    bool   `long:"save" description:"save the database with download markers"`
	Workers int    `short:"w" long:"workers" description:"parallel downloads"`
	Quiet   bool   `short:"q" long:"quiet" description:"no confirmation and no progress output"`
	Verbose bool   `short:"v" long:"verbose" description:"list every file in the summary"`
	DryRun  bool   `long:"dry-run" description:"show what would be downloaded"`
}

// ParseCmd refreshes the episode database
type ParseCmd struct {
	DB      string `long:"db" env:"LEPDL_DB" description:"episode database: json file or sqlite .db file"`
	Archive string `long:"archive" description:"archive page url"`
	Verbose bool   `short:"v" long:"verbose" description:"list parse anomalies"`
}

// ServeCmd runs the snapshot server
type ServeCmd struct {
	Listen  string `short:"l" long:"listen" env:"LISTEN" description:"listen address"`
	DB      string `long:"db" env:"LEPDL_DB" description:"episode database to publish"`
	BaseURL string `long:"base-url" env:"BASE_URL" description:"public url of the server"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	quiet := parser.Active.Name == "download" && opts.Download.Quiet
	setupLog(opts.Debug, quiet)
	setupColor(opts.NoColor)
	log.Printf("[DEBUG] lepdl version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts, parser.Active.Name, os.Stdout, os.Stdin)
	cancel()

	if err != nil {
		log.Printf("[ERROR] %s failed: %v", parser.Active.Name, err)
		if errors.Is(err, archive.ErrFetch) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func setupLog(dbg, quiet bool, secs ...string) {
	var logOpts []lgr.Option
	switch {
	case dbg:
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	case quiet:
		logOpts = []lgr.Option{lgr.Out(io.Discard), lgr.Err(os.Stderr)}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

// setupColor turns colors off on request or when stdout isn't a terminal
func setupColor(noColor bool) {
	fd := os.Stdout.Fd()
	if noColor || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		color.NoColor = true
	}
}
