package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentimentwatch/internal/app"
	"sentimentwatch/internal/chat"
	"sentimentwatch/internal/config"
	"sentimentwatch/internal/handler"
	"sentimentwatch/internal/pipeline"
	"sentimentwatch/pkg/llm"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {

	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if cfg == nil {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("error starting app: %v", err)
	}
	defer a.Close()

	var assistant handler.Responder
	if cfg.ChatEnabled() {
		assistant = chat.NewAssistant(llm.NewOpenAIChat(cfg.OpenRouterKey, cfg.ChatBaseURL, cfg.ChatModel), a.Searcher)
	} else {
		slog.Info("OPEN_ROUTER_KEY not set, chat disabled")
	}

	feedHandler := handler.NewFeedHandler(a.Items)
	metricsHandler := handler.NewMetricsHandler(a.Metrics, a.Runs, cfg.CronInterval())
	summaryHandler := handler.NewSummaryHandler(pipeline.NewSummarizer(a.Items, a.LLM), a.Cache, cfg.SummaryCacheTTL)
	biasHandler := handler.NewBiasHandler(pipeline.NewBiaser(a.LLM))
	cronHandler := handler.NewCronHandler(a.Pipeline, a.Cache, cfg.CronSecret)
	chatHandler := handler.NewChatHandler(assistant)
	pageHandler := handler.NewPageHandler(a.Items, a.Runs, a.Metrics)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	allowedOrigins := []string{"http://localhost:3000"}

	if cfg.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.FrontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "x-cron-secret"},
	}))

	r.GET("/", pageHandler.GetPage)
	r.GET("/feed", feedHandler.GetFeed)
	r.GET("/metrics", metricsHandler.GetMetrics)
	r.GET("/monitor", metricsHandler.GetMonitor)
	r.GET("/summary", summaryHandler.GetSummary)
	r.GET("/health", feedHandler.GetHealth)
	r.POST("/cron", cronHandler.PostCron)
	r.POST("/bias", biasHandler.PostBias)
	r.POST("/chat", chatHandler.PostChat)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("error starting server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}
