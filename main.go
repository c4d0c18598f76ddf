// go_tok — TikTok account info & video download Telegram bot.
//
// Resolves profiles and videos through layered strategies (page scrape,
// aggregation API, yt-dlp) with per-user rate limiting, bilingual UI
// (Arabic/English), favorites and search history.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/anatolykoptev/go_tok/internal/botserver"
	"github.com/anatolykoptev/go_tok/internal/engine"
)

var (
	version    = "dev"
	healthPort = env.Str("PORT", "10000")
)

func main() {
	initEngine()

	token := env.Str("BOT_TOKEN", "")
	if token == "" {
		slog.Error("BOT_TOKEN not set")
		os.Exit(1)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("telegram auth failed", slog.Any("error", err))
		os.Exit(1)
	}

	loc, err := botserver.LoadLocales()
	if err != nil {
		slog.Error("locale load failed", slog.Any("error", err))
		os.Exit(1)
	}

	limiter := engine.NewLimiter(
		engine.Cfg.RateLimitCount,
		engine.Cfg.RateLimitWindow,
		engine.Cfg.RateLimitCooldown,
	)
	store := engine.NewUserStore()
	profiles := engine.NewProfileResolver()
	videos := engine.NewVideoResolver()

	slog.Info("starting go_tok",
		slog.String("version", version),
		slog.String("bot", api.Self.UserName),
		slog.String("health_port", healthPort),
	)

	botserver.StartHealthServer(":" + healthPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot := botserver.New(api, loc, limiter, store, profiles, videos)
	bot.Run(ctx)

	slog.Info("shutdown complete")
}

func initEngine() {
	c := engine.Config{
		BaseURL:           env.Str("TIKTOK_BASE_URL", "https://www.tiktok.com"),
		TikwmURL:          env.Str("TIKWM_API_URL", "https://www.tikwm.com/api"),
		FetchTimeout:      env.Duration("FETCH_TIMEOUT", 30*time.Second),
		ShortLinkTimeout:  env.Duration("SHORTLINK_TIMEOUT", 10*time.Second),
		RateLimitCount:    env.Int("RATE_LIMIT_COUNT", 20),
		RateLimitWindow:   env.Duration("RATE_LIMIT_WINDOW", 300*time.Second),
		RateLimitCooldown: env.Duration("RATE_LIMIT_COOLDOWN", 600*time.Second),
		HTTPClient: engine.NewFetchClient(30 * time.Second),
	}

	bc, err := engine.NewBrowserClient(30)
	if err != nil {
		slog.Warn("browser client init failed, falling back to plain http", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("browser client initialized")
	}

	if path := engine.FindYtdlp(); path != "" {
		c.YtdlpPath = path
		slog.Info("yt-dlp extractor enabled", slog.String("path", path))
	}

	engine.Init(c)

	engine.InitCache(
		env.Str("REDIS_URL", ""),
		env.Duration("CACHE_TTL", 300*time.Second),
		env.Int("CACHE_MAX_ENTRIES", 1000),
		env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
	)
}
