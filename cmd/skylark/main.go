// Skylark - Feishu schedule bot
// Listens for chat messages, extracts schedule drafts with an LLM, and
// creates calendar events exactly once per message.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skylarkbot/skylark/pkg/api"
	"github.com/skylarkbot/skylark/pkg/auth"
	"github.com/skylarkbot/skylark/pkg/bus"
	"github.com/skylarkbot/skylark/pkg/channels"
	consolechannel "github.com/skylarkbot/skylark/pkg/channels/console"
	feishuchannel "github.com/skylarkbot/skylark/pkg/channels/feishu"
	"github.com/skylarkbot/skylark/pkg/config"
	"github.com/skylarkbot/skylark/pkg/dedup"
	"github.com/skylarkbot/skylark/pkg/extract"
	"github.com/skylarkbot/skylark/pkg/feishu"
	"github.com/skylarkbot/skylark/pkg/logger"
	"github.com/skylarkbot/skylark/pkg/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config (optional, env overrides)")
	consoleMode := flag.Bool("console", false, "attach a local console channel")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		if !*consoleMode {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		// Console mode runs without platform credentials; API calls will
		// fail into the fallback path instead.
		logger.WarnCF("main", "Running without valid Feishu config", map[string]interface{}{
			"error": err.Error(),
		})
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timezone: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := dedup.Open(cfg.Dedup.Path, cfg.Dedup.Window, cfg.Dedup.SweepThreshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dedup store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	go store.RunSweeper(ctx, cfg.Dedup.SweepCron)

	restClient := feishu.NewClient(cfg.Feishu.APIBase, cfg.Feishu.AppID, cfg.Feishu.AppSecret, cfg.DownloadTimeout)

	tokenStore, err := auth.NewTokenStore(cfg.OAuth.StorePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token store: %v\n", err)
		os.Exit(1)
	}
	oauthFlow := auth.NewOAuth(cfg.Feishu.AppID, cfg.Feishu.AppSecret,
		cfg.OAuth.AuthorizeURL, cfg.OAuth.TokenURL, cfg.OAuth.RedirectURI, cfg.OAuth.Scope)

	var (
		extractor extract.Extractor
		vision    extract.VisionExtractor
	)
	switch cfg.Extractor.Provider {
	case "claude":
		p := extract.NewClaudeProvider(cfg.Extractor.APIKey, cfg.Extractor.Model)
		extractor, vision = p, p
	default:
		p := extract.NewDoubaoProvider(cfg.Extractor.APIKey, cfg.Extractor.BaseURL,
			cfg.Extractor.Model, cfg.Extractor.VisionModel)
		extractor, vision = p, p
	}
	logger.InfoCF("main", "Extractor ready", map[string]interface{}{
		"provider": cfg.Extractor.Provider,
	})

	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	var userTokens pipeline.UserTokenSource
	if oauthFlow.Configured() {
		userTokens = tokenStore
	}
	detector := pipeline.NewDetector(restClient, 0)
	creator := pipeline.NewCreator(restClient, detector, restClient, userTokens,
		cfg.Feishu.DefaultCalendarID, cfg.Timezone)
	reporter := pipeline.NewReporter(msgBus)

	disp := pipeline.NewDispatcher(pipeline.DispatcherOptions{
		Bus:             msgBus,
		Store:           store,
		Fetcher:         restClient,
		Text:            extractor,
		Vision:          vision,
		Speech:          nil, // speech recognition not wired yet
		Creator:         creator,
		Reporter:        reporter,
		Location:        loc,
		DefaultDuration: cfg.DefaultDuration,
		RequestTimeout:  cfg.RequestTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
	})
	go disp.Run(ctx)

	manager := channels.NewManager(msgBus)
	if cfg.Feishu.AppID != "" && cfg.Feishu.AppSecret != "" {
		manager.Register(feishuchannel.New(cfg.Feishu.AppID, cfg.Feishu.AppSecret,
			msgBus, restClient, cfg.RequestTimeout))
	}
	if *consoleMode {
		manager.Register(consolechannel.New(msgBus))
	}

	if cfg.HTTPAddr != "" {
		srv := api.NewServer(cfg.HTTPAddr, oauthFlow, tokenStore)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.ErrorCF("main", "HTTP server failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	logger.InfoC("main", "Skylark is running, press Ctrl+C to stop")
	manager.StartAll(ctx)
	manager.StopAll()
	logger.InfoC("main", "Shutdown complete")
}
