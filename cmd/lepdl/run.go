package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/lepdl/pkg/archive"
	"github.com/umputun/lepdl/pkg/config"
	"github.com/umputun/lepdl/pkg/download"
	"github.com/umputun/lepdl/pkg/feed"
	"github.com/umputun/lepdl/pkg/repository"
	"github.com/umputun/lepdl/pkg/selector"
	"github.com/umputun/lepdl/pkg/service"
	"github.com/umputun/lepdl/server"
)

// run executes the named command, out gets the summary and in answers the confirmation
func run(ctx context.Context, opts Opts, command string, out io.Writer, in io.Reader) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}

	switch command {
	case "download":
		return runDownload(ctx, cfg, opts.Download, out, in)
	case "parse":
		return runParse(ctx, cfg, opts.Parse, out)
	case "serve":
		return runServe(ctx, cfg, opts.Serve, opts.Debug)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runDownload(ctx context.Context, cfg *config.Config, cmd DownloadCmd, out io.Writer, in io.Reader) error {
	criteria, err := criteriaFromCmd(cmd)
	if err != nil {
		return err
	}
	if criteria.Conflicting() {
		lgr.Printf("[WARN] both date and episode filters given, episode filter %s ignored", criteria.Numbers)
	}

	// flags override config
	if cmd.Dest != "" {
		cfg.Download.Dest = cmd.Dest
	}
	if cmd.DB != "" {
		cfg.Snapshot.Location = cmd.DB
	}
	if cmd.Workers > 0 {
		cfg.Download.Workers = cmd.Workers
	}
	cfg.Download.WithPDF = cfg.Download.WithPDF || cmd.WithPDF
	cfg.Snapshot.Save = cfg.Snapshot.Save || cmd.Save

	if err := os.MkdirAll(cfg.Download.Dest, 0o750); err != nil {
		return fmt.Errorf("make destination: %w", err)
	}
	storage, err := download.NewLocalStorage(cfg.Download.Dest)
	if err != nil {
		return err
	}
	unlock, err := storage.Lock()
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	store, err := repository.Open(ctx, cfg.Snapshot.Location, repository.Options{Timeout: cfg.Snapshot.Timeout})
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer store.Close()

	orchestrator := download.New(storage, download.NewHTTPGetter(cfg.Download.Timeout, cfg.Archive.UserAgent), nil,
		download.Config{Workers: cfg.Download.Workers, WithPDF: cfg.Download.WithPDF, PDFMirror: cfg.Archive.PDFStorageURL})
	svc, err := newService(cfg, store, orchestrator)
	if err != nil {
		return err
	}

	req := service.DownloadRequest{Criteria: criteria, DryRun: cmd.DryRun, Save: cfg.Snapshot.Save}
	if !cmd.Quiet {
		req.Confirm = func(plan []download.Outcome) bool { return confirm(out, in, plan) }
	}
	rep, err := svc.Download(ctx, req)
	if err != nil {
		return err
	}

	switch {
	case cmd.DryRun:
		printPlan(out, rep)
	default:
		printReport(out, rep, cmd.Verbose)
	}
	return rep.SaveErr
}

func runParse(ctx context.Context, cfg *config.Config, cmd ParseCmd, out io.Writer) error {
	if cmd.DB != "" {
		cfg.Snapshot.Location = cmd.DB
	}
	if cmd.Archive != "" {
		cfg.Archive.URL = cmd.Archive
	}
	store, err := repository.Open(ctx, cfg.Snapshot.Location, repository.Options{Timeout: cfg.Snapshot.Timeout})
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer store.Close()

	svc, err := newService(cfg, store, nil)
	if err != nil {
		return err
	}
	rep, err := svc.Parse(ctx)
	if err != nil {
		return err
	}
	printParse(out, rep, cmd.Verbose)
	return rep.SaveErr
}

func runServe(ctx context.Context, cfg *config.Config, cmd ServeCmd, debug bool) error {
	if cmd.Listen != "" {
		cfg.Server.Listen = cmd.Listen
	}
	if cmd.DB != "" {
		cfg.Snapshot.Location = cmd.DB
	}
	if cmd.BaseURL != "" {
		cfg.Server.BaseURL = cmd.BaseURL
	}
	store, err := repository.Open(ctx, cfg.Snapshot.Location, repository.Options{Timeout: cfg.Snapshot.Timeout})
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer store.Close()

	srv := server.New(server.Config{Listen: cfg.Server.Listen, Timeout: cfg.Server.Timeout, BaseURL: cfg.Server.BaseURL,
		Location: cfg.Snapshot.Location}, store, revision, debug)
	return srv.Run(ctx)
}

// newService wires archive, feed and store into a run service, downloader may be nil
func newService(cfg *config.Config, store repository.Store, downloader service.Downloader) (*service.Service, error) {
	parser, err := archive.NewParser(cfg.Rules, archive.NormalizerConfig{PDFStorageURL: cfg.Archive.PDFStorageURL,
		NewestFirst: cfg.Archive.NewestFirst})
	if err != nil {
		return nil, fmt.Errorf("make archive parser: %w", err)
	}
	p := service.Params{
		Fetcher: archive.NewFetcher(archive.FetcherConfig{Timeout: cfg.Archive.Timeout, UserAgent: cfg.Archive.UserAgent,
			Retries: cfg.Archive.Retries, RetryDelay: cfg.Archive.RetryDelay}),
		Parser:     parser,
		Store:      store,
		Downloader: downloader,
		ArchiveURL: cfg.Archive.URL,
	}
	if cfg.Feed.URL != "" {
		p.Enricher = &feed.Enricher{Source: feed.NewParser(cfg.Feed.Timeout, cfg.Archive.UserAgent), URL: cfg.Feed.URL}
	}
	return service.New(p), nil
}

func criteriaFromCmd(cmd DownloadCmd) (selector.Criteria, error) {
	var c selector.Criteria
	var err error
	c.Last = cmd.Last
	if c.Numbers, err = selector.ParseRange(cmd.Episode); err != nil {
		return c, err
	}
	if c.Dates.From, err = selector.ParseDate(cmd.Start); err != nil {
		return c, fmt.Errorf("bad start date: %w", err)
	}
	if c.Dates.To, err = selector.ParseDate(cmd.End); err != nil {
		return c, fmt.Errorf("bad end date: %w", err)
	}
	return c, nil
}

// confirm shows the plan size and waits for yes
func confirm(out io.Writer, in io.Reader, plan []download.Outcome) bool {
	pending := 0
	for _, o := range plan {
		if o.State == download.StatePending {
			pending++
		}
	}
	if pending == 0 {
		return true
	}
	fmt.Fprintf(out, "%d files to download, %d already on disk. Continue? [y/N] ", pending, len(plan)-pending)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(out)
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
