package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"signupbot/internal/adapters/discord"
	"signupbot/internal/application"
	"signupbot/internal/config"
	"signupbot/internal/infrastructure/database"
	"signupbot/internal/infrastructure/i18n"
	"signupbot/internal/infrastructure/logger"
)

type options struct {
	migrateOnly bool
	once        bool
	guildConfig string
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("signupbot", pflag.ContinueOnError)
	flagSet.BoolVar(&opts.migrateOnly, "migrate-only", false, "apply database migrations and exit")
	flagSet.BoolVar(&opts.once, "once", false, "run a single scheduler tick and exit (no gateway connection)")
	flagSet.StringVar(&opts.guildConfig, "guild-config", "", "guild settings TOML file (overrides GUILD_CONFIG_PATH)")
	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

func run() error {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.guildConfig != "" {
		cfg.GuildConfigPath = opts.guildConfig
	}
	log := logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		return err
	}
	if opts.migrateOnly {
		return nil
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	guilds, err := config.LoadGuildConfigs(cfg.GuildConfigPath, cfg.DefaultLocale)
	if err != nil {
		return err
	}
	translator := i18n.NewTranslator(cfg.DefaultLocale, log)
	store := database.NewStore(pool, log)

	session, err := discord.NewSession(cfg.Token)
	if err != nil {
		return err
	}
	gateway := discord.NewGateway(session, translator, guilds, log)

	voice := application.NewVoiceService(store, gateway, guilds, log)
	stats := application.NewStatisticsService(store, guilds, log)
	lifecycle := application.NewLifecycleService(store, gateway, guilds, translator, stats, voice, log)
	reminders := application.NewReminderService(store, gateway, guilds, translator, log)
	events := application.NewEventService(store, gateway, lifecycle, voice, log)
	participants := application.NewParticipantService(store, gateway, guilds, translator, log)

	scheduler := application.NewScheduler(application.SchedulerConfig{
		Interval:     cfg.TickInterval,
		LogRetention: cfg.LogRetention(),
	}, store, reminders, lifecycle, voice, log)

	if opts.once {
		scheduler.Tick(ctx)
		return nil
	}

	handler := discord.NewHandler(events, participants, stats, translator, guilds, log)
	bot := discord.NewBot(session, handler, cfg.GuildID, log)
	if err := bot.Open(); err != nil {
		return err
	}
	defer closeBot(bot, log)

	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

func closeBot(bot *discord.Bot, log zerolog.Logger) {
	if err := bot.Close(); err != nil {
		log.Warn().Err(err).Msg("close discord session")
	}
}
