package scheduler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/lemon8866/hotboard/internal/collector"
	"github.com/lemon8866/hotboard/internal/processor"
	"github.com/lemon8866/hotboard/internal/snapshot"
	"github.com/lemon8866/hotboard/internal/storage"
	"github.com/robfig/cron/v3"
)

// Options 控制榜单采集的默认节奏，单个源可以在映射表里覆盖间隔和抖动
type Options struct {
	Interval     time.Duration // 默认采集周期
	Jitter       time.Duration // 周期上叠加的随机抖动上限，0 表示不抖动
	FetchTimeout time.Duration // 单次抓取超时
	StopGrace    time.Duration // Stop 等待在途任务收尾的时限
}

// jitterSchedule 固定间隔加随机抖动，避免所有榜单在同一瞬间打向上游
type jitterSchedule struct {
	interval time.Duration
	jitter   time.Duration
}

func (js jitterSchedule) Next(t time.Time) time.Time {
	d := js.interval
	if js.jitter > 0 {
		d += time.Duration(rand.Int63n(int64(js.jitter)))
	}
	return t.Add(d)
}

// board 是一个榜单的采集单元
type board struct {
	adapter *processor.Adapter
	fetcher collector.Fetcher
	job     cron.Job // 套上防重叠包装的执行体，定时、提前补采和手动触发都走它
	entry   cron.EntryID
}

type Scheduler struct {
	cron      *cron.Cron
	snapshots *snapshot.Store
	archive   *storage.Store
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	boards map[string]*board
	early  map[string]*time.Timer // 由 next_refresh_time 提示挂起的一次性提前执行
}

// New 为注册表里的每个榜单建一个带抖动的 cron 任务，没有对应抓取器的源跳过
func New(reg *processor.Registry, client *collector.Client, snaps *snapshot.Store, archive *storage.Store, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 20 * time.Second
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      cron.New(),
		snapshots: snaps,
		archive:   archive,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		boards:    make(map[string]*board),
		early:     make(map[string]*time.Timer),
	}

	skipLogger := cron.VerbosePrintfLogger(log.Default())
	for _, a := range reg.All() {
		t := a.Table()
		f, ok := collector.ForTable(client, t, opts.FetchTimeout)
		if !ok {
			log.Printf("no fetcher for %s, skip", a.Board())
			continue
		}

		b := &board{adapter: a, fetcher: f}
		b.job = cron.NewChain(cron.SkipIfStillRunning(skipLogger)).Then(cron.FuncJob(func() {
			s.runCycle(b)
		}))

		interval, jitter := opts.Interval, opts.Jitter
		if t.Interval > 0 {
			interval = t.Interval
		}
		if t.Jitter > 0 {
			jitter = t.Jitter
		}
		b.entry = s.cron.Schedule(jitterSchedule{interval: interval, jitter: jitter}, b.job)
		s.boards[a.Board()] = b
	}

	return s
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟首轮采集，让磁盘快照预热和端口监听先完成
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		if s.ctx.Err() != nil {
			return
		}
		s.RunAll()
	})
}

// RunAll 并发跑一轮全部榜单并等待完成，采集命令和启动首轮用
func (s *Scheduler) RunAll() {
	s.mu.Lock()
	boards := make([]*board, 0, len(s.boards))
	for _, b := range s.boards {
		boards = append(boards, b)
	}
	s.mu.Unlock()

	log.Println("start collect job...")
	var wg sync.WaitGroup
	for _, b := range boards {
		wg.Add(1)
		go func(b *board) {
			defer wg.Done()
			b.job.Run()
		}(b)
	}
	wg.Wait()
	log.Println("collect job done (all boards)")
}

// RunOnce 手动触发一个榜单的采集，供采集命令和强制刷新接口使用。
// 同样受防重叠保护，该榜单正在采集时本次直接跳过。
func (s *Scheduler) RunOnce(source, category string) error {
	s.mu.Lock()
	b, ok := s.boards[source+"/"+category]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown board %s/%s", source, category)
	}
	b.job.Run()
	return nil
}

// Has 是否注册了该榜单的采集任务
func (s *Scheduler) Has(source, category string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.boards[source+"/"+category]
	return ok
}

func (s *Scheduler) runCycle(b *board) {
	name := b.fetcher.Name()
	seq := s.snapshots.NextSeq(b.adapter.Source(), b.adapter.Category())

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.FetchTimeout)
	defer cancel()

	res, err := b.fetcher.Fetch(ctx)
	if err != nil {
		log.Printf("fetch %s error: %v", name, err)
		return
	}

	listing := b.adapter.NormalizeListing(res.Envelope, res.FetchedAt)
	listing.Seq = seq
	if len(listing.Items) == 0 {
		log.Printf("fetch %s got 0 items", name)
	}

	// 停机宽限期已过的在途任务不再落盘
	if s.ctx.Err() != nil {
		log.Printf("%s cycle abandoned on shutdown", name)
		return
	}

	if err := s.snapshots.Save(&snapshot.Snapshot{
		Source:    listing.Source,
		Category:  listing.Category,
		Seq:       seq,
		FetchedAt: res.FetchedAt,
		Listing:   listing,
		Raw:       res.Raw,
	}); err != nil {
		log.Printf("%v", err)
	}
	if err := s.archive.SaveListing(listing); err != nil {
		log.Printf("save %s batch error: %v", name, err)
	}

	s.scheduleEarlyRefresh(b, listing.NextRefreshTime)
	log.Printf("%s done, seq=%d, %d items", name, seq, len(listing.Items))
}

// scheduleEarlyRefresh 按站方返回的 next_refresh_time 提前补一轮采集。
// 只在提示时间早于下一次例行触发时生效，同一榜单最多挂一个提前任务。
func (s *Scheduler) scheduleEarlyRefresh(b *board, nextRefresh int64) {
	if nextRefresh <= 0 {
		return
	}
	at := time.Unix(nextRefresh, 0)
	delay := time.Until(at)
	if delay <= 0 {
		return
	}
	if next := s.cron.Entry(b.entry).Next; !next.IsZero() && !at.Before(next) {
		return
	}

	name := b.adapter.Board()
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.early[name]; ok {
		old.Stop()
	}
	s.early[name] = time.AfterFunc(delay, func() {
		if s.ctx.Err() != nil {
			return
		}
		log.Printf("%s early refresh (hinted)", name)
		b.job.Run()
	})
}

// Stop 停掉计划并等待在途任务收尾，超过宽限时间就放弃等待。
// 被放弃的任务会在落盘前看到取消信号，自己丢弃本轮结果。
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	for _, tm := range s.early {
		tm.Stop()
	}
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	grace, cancel := context.WithTimeout(ctx, s.opts.StopGrace)
	defer cancel()
	select {
	case <-stopCtx.Done():
		log.Println("scheduler stopped")
	case <-grace.Done():
		log.Println("scheduler stop grace exceeded, abandoning in-flight jobs")
	}
	s.cancel()
}
