package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/hevcd/hevcd/internal/config"
	"github.com/hevcd/hevcd/internal/cookies"
	"github.com/hevcd/hevcd/internal/platform"
	"github.com/hevcd/hevcd/internal/server"
	"github.com/hevcd/hevcd/internal/task"
	"github.com/hevcd/hevcd/internal/transcode"
	"github.com/hevcd/hevcd/internal/ytclient"
)

func main() {
	err := runApp()
	if err == nil {
		return
	}

	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func runApp() error {
	app := kingpin.New("hevcd", "YouTube download and HEVC conversion service.")

	configPath := app.Flag("config", "Path to a YAML config file.").Envar("HEVCD_CONFIG").String()
	listenAddr := app.Flag("listen", "HTTP listen address.").Envar("HEVCD_LISTEN").String()
	workDir := app.Flag("work-dir", "Directory for in-flight download files.").Envar("HEVCD_WORK_DIR").String()
	outputDir := app.Flag("output-dir", "Directory for converted artifacts.").Envar("HEVCD_OUTPUT_DIR").String()
	cookiesFile := app.Flag("cookies-file", "Path of the uploadable cookie file.").Envar("HEVCD_COOKIES_FILE").String()
	frontendOrigin := app.Flag("frontend-origin", "Allowed CORS origin.").Envar("HEVCD_FRONTEND_ORIGIN").String()
	maxParallel := app.Flag("max-parallel", "Maximum concurrent pipeline tasks.").Envar("HEVCD_MAX_PARALLEL").Int()
	debug := app.Flag("debug", "Enable debug logging.").Envar("HEVCD_DEBUG").Bool()

	if _, err := app.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Flags and env vars win over the config file.
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *workDir != "" {
		cfg.WorkDir = *workDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *cookiesFile != "" {
		cfg.CookiesFile = *cookiesFile
	}
	if *frontendOrigin != "" {
		cfg.FrontendOrigin = *frontendOrigin
	}
	if *maxParallel > 0 {
		cfg.MaxParallel = *maxParallel
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logrus.NewEntry(logger)

	for _, dir := range []string{cfg.WorkDir, cfg.OutputDir} {
		if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	resolver := cookies.NewResolver(cfg.CookiesFile, log)
	if stores := resolver.DetectBrowserStores(); len(stores) > 0 {
		log.Infof("Browser cookie stores available: %v", stores)
	}
	if v := resolver.ValidateFile(); v.Valid {
		log.Infof("Cookie file %s loaded with %d entries", cfg.CookiesFile, v.EntryCount)
	} else {
		log.Infof("No usable cookie file (%s), anonymous requests only until one is uploaded", v.Reason)
	}

	runner := ytclient.NewCLIRunner(log)
	failures := &ytclient.FailureCounter{}
	transcoder := transcode.NewService(cfg.EncodeTimeout, cfg.RemuxTimeout, log)

	extractor := ytclient.NewExtractor(ytclient.ExtractorConfig{
		Runner:      runner,
		Credentials: resolver,
		Failures:    failures,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      log,
	})
	fetcher := ytclient.NewFetcher(ytclient.FetcherConfig{
		Runner:      runner,
		Credentials: resolver,
		Prober:      transcoder,
		Failures:    failures,
		WorkDir:     cfg.WorkDir,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      log,
	})

	store := task.NewStore(cfg.WorkDir, cfg.OutputDir)
	orchestrator := task.NewOrchestrator(task.OrchestratorConfig{
		Store:          store,
		Extractor:      extractor,
		Fetcher:        fetcher,
		Transcoder:     transcoder,
		WorkDir:        cfg.WorkDir,
		MaxParallel:    cfg.MaxParallel,
		HasCredentials: resolver.HasCredentials,
		Logger:         log,
	})

	srv := server.New(server.Config{
		Store:          store,
		Queue:          orchestrator,
		Cookies:        resolver,
		ListenAddr:     cfg.ListenAddr,
		FrontendOrigin: cfg.FrontendOrigin,
		Logger:         log,
	})

	var g run.Group

	// OS signals.
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	// HTTP API.
	g.Add(
		func() error {
			return srv.ListenAndServe()
		},
		func(_ error) {
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Warnf("HTTP shutdown: %v", err)
			}
		},
	)

	log.Infof("hevcd starting: listen=%s workers=%d", cfg.ListenAddr, cfg.MaxParallel)
	return g.Run()
}
