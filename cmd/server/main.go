package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/newsmeme/config"
	"github.com/d60-Lab/newsmeme/internal/api/handler"
	"github.com/d60-Lab/newsmeme/internal/api/router"
	"github.com/d60-Lab/newsmeme/internal/auth"
	"github.com/d60-Lab/newsmeme/internal/cache"
	"github.com/d60-Lab/newsmeme/internal/job"
	"github.com/d60-Lab/newsmeme/internal/repository"
	"github.com/d60-Lab/newsmeme/internal/service"
	"github.com/d60-Lab/newsmeme/pkg/database"
	"github.com/d60-Lab/newsmeme/pkg/logger"
	"github.com/d60-Lab/newsmeme/pkg/monitor"
	"github.com/d60-Lab/newsmeme/pkg/tracer"
)

var version = "dev"

// @title newsmeme API
// @version 1.0
// @description 社交新闻：帖子、评论、投票、标签与关注关系
// @BasePath /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := monitor.InitSentry(cfg.Sentry, version); err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer monitor.Flush(2 * time.Second)

	ctx := context.Background()
	shutdownTracer, err := tracer.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracer failed", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()
	store := repository.NewStore(db)

	var (
		tagCache cache.Cache = cache.Nop{}
		fans     *cache.FanIndex
		rdb      *redis.Client
	)
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			// 缓存不可用时降级为直接查库
			logger.Warn("redis unavailable, cache disabled", zap.Error(err))
		} else {
			tagCache = cache.NewRedisCache(rdb, cfg.App.Name+":")
			fans = cache.NewFanIndex(rdb, cfg.Redis.FanCacheTTL, service.FanLoader(store))
		}
	}

	mailQueue := service.NewMailQueue(service.NewLogMailer(cfg.App.MailSender), 1000)
	stopMail := mailQueue.Start(2)

	tokens := auth.NewTokenManager(cfg.JWT)
	tags := service.NewTagService(store, tagCache, cfg.Redis.TagCacheTTL, cfg.App.TopTags)
	accounts := service.NewAccountService(store, tokens, tags, fans, mailQueue, cfg.App.PostsPerPage)
	h := handler.NewHandler(
		accounts,
		service.NewRelationshipService(store, fans, mailQueue),
		service.NewPostService(store, tags, mailQueue, cfg.App.PostsPerPage),
		service.NewCommentService(store, mailQueue, cfg.App.Admins, cfg.App.CommentsPerPage),
		tags,
	)

	scheduler := job.NewScheduler(cfg.App.RequestTimeout)
	if err := scheduler.AddWarmer(cfg.App.TagWarmSpec, "top_tags", tags); err != nil {
		logger.Fatal("schedule warmer failed", zap.Error(err))
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(cfg, h, tokens, accounts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler stop", zap.Error(err))
	}
	if err := stopMail(shutdownCtx); err != nil {
		logger.Warn("mail queue not drained", zap.Error(err), zap.Int("pending", mailQueue.QueueLen()))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
