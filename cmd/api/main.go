package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/lemon8866/hotboard/internal/api"
	"github.com/lemon8866/hotboard/internal/collector"
	"github.com/lemon8866/hotboard/internal/config"
	"github.com/lemon8866/hotboard/internal/processor"
	"github.com/lemon8866/hotboard/internal/scheduler"
	"github.com/lemon8866/hotboard/internal/snapshot"
	"github.com/lemon8866/hotboard/internal/storage"
)

func main() {
	cfg := config.Load()

	// 源注册表：内置映射表 + 可选的 YAML 覆盖
	reg := processor.NewRegistry(processor.BuiltinTables())
	if err := config.LoadSources(cfg.SourcesFile, reg); err != nil {
		log.Fatalf("load sources failed: %v", err)
	}

	snaps, err := snapshot.NewStore(cfg.DataDir, cfg.MaxFilesPerBucket, cfg.KeepDays)
	if err != nil {
		log.Fatalf("init snapshot store failed: %v", err)
	}
	// 冷启动先把磁盘上的最新快照装回内存，接口立刻可查
	snaps.LoadLatestFromDisk()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	client := collector.NewClient(cfg.RebangToken, cfg.FetchTimeout)
	sched := scheduler.New(reg, client, snaps, store, scheduler.Options{
		Interval:     cfg.RefreshInterval,
		Jitter:       cfg.RefreshJitter,
		FetchTimeout: cfg.FetchTimeout,
		StopGrace:    cfg.ShutdownGrace,
	})
	sched.Start()

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	api.NewServer(reg, snaps, sched, store).RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		log.Printf("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server exit: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	sched.Stop(ctx)
	log.Println("bye")
}
