// Command pantry-bot runs the conversational pantry inventory bot.
//
//	@title			pantry-bot ops API
//	@version		1.0
//	@description	Operator API of the pantry bot: run conversational turns, read the inventory and trigger reminder cycles.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/tbourn/pantry-bot/internal/app"
	"github.com/tbourn/pantry-bot/internal/config"
	"github.com/tbourn/pantry-bot/internal/observability"
	"github.com/tbourn/pantry-bot/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pantry-bot:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("pantry-bot", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	once := flags.Bool("run-reminders-once", false, "run one reminder cycle, print the report and exit")
	showVersion := flags.BoolP("version", "v", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println(version)
		return nil
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, observability.BuildInfo{
		Version:  version,
		Platform: cfg.Platform,
	})
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(sctx)
	}()

	log.Info().
		Str("version", version).
		Str("platform", cfg.Platform).
		Str("db", cfg.DBPath).
		Str("line_token", sysutil.MaskSecret(cfg.LINE.ChannelToken)).
		Str("telegram_token", sysutil.MaskSecret(cfg.Telegram.BotToken)).
		Bool("ai", cfg.AI.GeminiAPIKey != "").
		Msg("starting pantry-bot")

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()

	if *once {
		rep, err := a.Reminders.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("items=%d users=%d sent=%d failed=%d\n", rep.Items, rep.Users, rep.Sent, rep.Failed)
		return nil
	}

	err = a.Run(ctx)
	log.Info().Msg("pantry-bot stopped")
	return err
}
