package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"broadcast/internal/config"
	"broadcast/internal/db"
	"broadcast/internal/handlers"
	"broadcast/internal/middleware"
	"broadcast/internal/realtime"
	"broadcast/internal/router"
	"broadcast/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	repairCounts := flag.Bool("repair-counts", false, "recompute every post's comment count and exit")
	flag.Parse()

	cfg := config.Load()
	cfg.SetupLogging()

	// Initialize Database
	db.Init(cfg.DBDriver, cfg.DatabaseURL, cfg.SQLitePath)

	profiles, err := services.NewProfileCache(db.DB, cfg.ProfileCacheSize, cfg.ProfileCacheTTL)
	if err != nil {
		log.Fatalf("profile cache: %v", err)
	}
	feed := services.NewFeedService(db.DB, profiles, cfg.RequestTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 实时推送：本地 Hub，可选 Redis 跨实例转发
	// The hub outlives ctx so the publisher can drain into it on shutdown.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := realtime.NewHub(cfg.BroadcastQueueSize)
	go hub.Run(hubCtx)

	var sink realtime.Publisher = hub
	if cfg.RedisURL != "" {
		bridge, err := realtime.NewRedisBridge(cfg.RedisURL, cfg.RedisChannel, hub)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer bridge.Close()
		go bridge.Run(hubCtx)
		sink = bridge
		log.Printf("Redis fan-out enabled on channel %s", cfg.RedisChannel)
	}

	publisher := services.NewPublisher(sink, feed.GetPost, cfg.BroadcastQueueSize, cfg.BroadcastFlushInterval)
	engage := services.NewEngagementService(db.DB, feed, publisher, cfg.RequestTimeout)

	if *repairCounts {
		n, err := engage.RepairCommentCounts(ctx)
		if err != nil {
			log.Fatalf("repair comment counts: %v", err)
		}
		log.Printf("comment counts repaired on %d posts", n)
		return
	}

	publisherDone := make(chan struct{})
	go func() {
		publisher.Run(ctx)
		close(publisherDone)
	}()

	users := services.NewUserService(db.DB, profiles, services.NewMailService(cfg), cfg.RequestTimeout)
	users.AdminEmail = cfg.VerifyAdminEmail
	users.BaseURL = cfg.PublicBaseURL
	statuses := services.NewStatusService(db.DB, profiles, cfg.RequestTimeout, cfg.StatusTTL)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	router.RegisterRoutes(r, router.Handlers{
		Posts:    handlers.NewPostHandler(feed, engage),
		Comments: handlers.NewCommentHandler(feed, engage),
		Statuses: handlers.NewStatusHandler(statuses),
		Users:    handlers.NewUserHandler(users),
		Realtime: handlers.NewRealtimeHandler(hub, cfg.AllowedOrigins),
	}, profiles, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Broadcast server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	select {
	case <-publisherDone:
	case <-shutdownCtx.Done():
		log.Warn("broadcast publisher did not drain in time")
	}
	stopHub()
}
