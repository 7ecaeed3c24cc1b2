// Package main provides the bot entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	apiconnect "github.com/osa030/autodj/internal/api/connect"
	"github.com/osa030/autodj/internal/app/filter"
	"github.com/osa030/autodj/internal/app/notification"
	"github.com/osa030/autodj/internal/app/resolver"
	"github.com/osa030/autodj/internal/app/session"
	"github.com/osa030/autodj/internal/app/worker"
	"github.com/osa030/autodj/internal/domain/autoplaylist"
	"github.com/osa030/autodj/internal/infra/config"
	"github.com/osa030/autodj/internal/infra/discord"
	"github.com/osa030/autodj/internal/infra/logger"
)

var (
	app        = kingpin.New("autodj", "autodj Discord music bot")
	configPath = app.Flag("config", "Path to config file").Default("config/bot.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	ffmpegPath = app.Flag("ffmpeg", "Path to the ffmpeg binary").Default("ffmpeg").String()

	listFiltersCmd       = app.Command("list-filters", "List available filters and exit")
	checkAutoplaylistCmd = app.Command("check-autoplaylist", "Load the autoplaylist file and report its size")
)

func init() {
	app.Command("start", "Start the bot (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Settings from the file apply unless a flag already chose them.
	if !*verbose {
		loggerConfig.Level = cfg.Log.Level
	}
	loggerConfig.MaxSizeMB = cfg.Log.MaxSizeMB
	loggerConfig.MaxBackups = cfg.Log.MaxBackups
	loggerConfig.MaxAgeDays = cfg.Log.MaxAgeDays
	if err := logger.Init(loggerConfig); err != nil {
		zlog.Fatal().Msgf("Failed to initialize logger: %v", err)
	}

	if command == checkAutoplaylistCmd.FullCommand() {
		if err := checkAutoplaylist(cfg); err != nil {
			zlog.Fatal().Msgf("Autoplaylist check failed: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Bot error: %v", err)
		os.Exit(1)
	}
}

// run executes the main bot logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	if err := validateFilterConfig(cfg); err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	titles, err := resolver.NewFromConfig(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create resolver")
	}
	defer func() {
		if err := titles.Close(); err != nil {
			zlog.Warn().Msgf("Failed to close resolver: %v", err)
		}
	}()

	bot, err := discord.New(cfg.Discord)
	if err != nil {
		return err
	}

	player := discord.NewPlayer(titles.Streamer(), *ffmpegPath)
	notifier := notification.NewManager(bot.Sender, cfg.Messages)

	sessionMgr, err := session.NewManager(cfg, session.Options{
		Resolver:     titles,
		Player:       player,
		Connections:  bot.Voice,
		Notification: notifier,
		Pool:         worker.NewPool(cfg.Workers.MaxConcurrent),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create session manager")
	}

	bot.SetCommands(discord.NewCommands(cfg, sessionMgr, bot.Voice, notifier))
	if err := bot.Open(ctx); err != nil {
		return err
	}

	if err := sessionMgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start session monitor")
	}

	// Admin endpoint is optional
	serverErrCh := make(chan error, 1)
	var server *http.Server
	if cfg.Admin.Addr != "" {
		server = apiconnect.NewServer(cfg, sessionMgr)
		go func() {
			zlog.Info().Msgf("Starting admin server: addr=%s", cfg.Admin.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "admin server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionMgr.Close()
	player.StopAll()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown admin server: %v", err)
		}
	}
	bot.Close(shutdownCtx)

	zlog.Info().Msg("Bot stopped")
	return runErr
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	registry := filter.GetRegistered()

	for filterName, filterCfg := range cfg.Filters {
		if !filterCfg.Enabled {
			continue
		}

		factory, exists := registry[filterName]
		if !exists {
			return errors.Newf("unknown filter: %s", filterName)
		}

		f := factory()
		if err := f.ValidateConfig(filterCfg.Settings); err != nil {
			return errors.Wrapf(err, "filter %s", filterName)
		}
	}

	return nil
}

// checkAutoplaylist loads the configured autoplaylist and prints its size.
func checkAutoplaylist(cfg *config.Config) error {
	if cfg.Autoplaylist.Path == "" {
		fmt.Println("No autoplaylist configured; sessions will only play requests")
		return nil
	}
	urls, err := autoplaylist.Load(cfg.Autoplaylist.Path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d urls\n", cfg.Autoplaylist.Path, len(urls))
	return nil
}
