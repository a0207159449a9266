package main

import (
	"log"
	"os"
	"strings"

	"github.com/lemon8866/hotboard/internal/collector"
	"github.com/lemon8866/hotboard/internal/config"
	"github.com/lemon8866/hotboard/internal/processor"
	"github.com/lemon8866/hotboard/internal/scheduler"
	"github.com/lemon8866/hotboard/internal/snapshot"
	"github.com/lemon8866/hotboard/internal/storage"
)

// 一个仅执行一轮采集的命令行入口：适合手动触发或外部 crontab 调度
func main() {
	cfg := config.Load()

	reg := processor.NewRegistry(processor.BuiltinTables())
	if err := config.LoadSources(cfg.SourcesFile, reg); err != nil {
		log.Fatalf("load sources failed: %v", err)
	}

	snaps, err := snapshot.NewStore(cfg.DataDir, cfg.MaxFilesPerBucket, cfg.KeepDays)
	if err != nil {
		log.Fatalf("init snapshot store failed: %v", err)
	}
	// 先把序号水位从磁盘装回来，一次性任务写出的快照才不会被当成旧数据
	snaps.LoadLatestFromDisk()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	client := collector.NewClient(cfg.RebangToken, cfg.FetchTimeout)
	s := scheduler.New(reg, client, snaps, store, scheduler.Options{
		Interval:     cfg.RefreshInterval,
		Jitter:       cfg.RefreshJitter,
		FetchTimeout: cfg.FetchTimeout,
		StopGrace:    cfg.ShutdownGrace,
	})

	// SOURCES=weibo/realtime,zhihu/hot 只采集这几个榜单
	if filter := os.Getenv("SOURCES"); filter != "" {
		for _, board := range strings.Split(filter, ",") {
			board = strings.TrimSpace(board)
			src, cat, ok := strings.Cut(board, "/")
			if !ok {
				log.Fatalf("bad SOURCES entry %q, want source/category", board)
			}
			if err := s.RunOnce(src, cat); err != nil {
				log.Fatalf("collect %s failed: %v", board, err)
			}
		}
		return
	}

	// 只执行一轮采集任务后退出
	s.RunAll()
}
