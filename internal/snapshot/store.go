// Package snapshot 负责抓取结果的落盘与"最新榜单"内存槽。
// 目录布局 <root>/<source>/<category>/<YYYYMMDD>/<HH>/，每次抓取一个文件，
// 文件里是规范化榜单加原始 payload 备查。
package snapshot

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lemon8866/hotboard/internal/model"
)

// Snapshot 一次抓取的完整落盘记录
type Snapshot struct {
	Source    string          `json:"source"`
	Category  string          `json:"category"`
	Seq       uint64          `json:"seq"`
	FetchedAt time.Time       `json:"fetched_at"`
	Listing   *model.Listing  `json:"listing"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Store 文件快照仓库。同一块板的写入和清理持同一把锁，写完立刻清理；
// "最新榜单"槽只接受序号更大的结果，慢周期迟到的旧数据会被丢弃。
type Store struct {
	root              string
	maxFilesPerBucket int
	keepDays          int

	mu     sync.Mutex
	latest map[string]*model.Listing
	seqs   map[string]uint64
	boards map[string]*sync.Mutex
}

func NewStore(root string, maxFilesPerBucket, keepDays int) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot root: %w", err)
	}
	return &Store{
		root:              root,
		maxFilesPerBucket: maxFilesPerBucket,
		keepDays:          keepDays,
		latest:            make(map[string]*model.Listing),
		seqs:              make(map[string]uint64),
		boards:            make(map[string]*sync.Mutex),
	}, nil
}

// NextSeq 在抓取周期开始时领取本板的单调序号
func (s *Store) NextSeq(source, category string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	board := source + "/" + category
	s.seqs[board]++
	return s.seqs[board]
}

// Latest 返回本板最近一次完成的榜单，冷启动且磁盘上也没有数据时为 nil
func (s *Store) Latest(source, category string) *model.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[source+"/"+category]
}

// Save 落盘一次抓取并更新最新槽。序号落后于已有结果时最新槽不动，
// 文件照写留作审计。写失败只影响落盘，最新槽照常更新，查询不受影响。
func (s *Store) Save(snap *Snapshot) error {
	board := snap.Source + "/" + snap.Category
	s.updateLatest(board, snap)

	lock := s.boardLock(board)
	lock.Lock()
	defer lock.Unlock()

	day := snap.FetchedAt.Format("20060102")
	hour := snap.FetchedAt.Format("15")
	dir := filepath.Join(s.root, snap.Source, snap.Category, day, hour)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot write %s: %w", board, err)
	}

	name := fmt.Sprintf("hot_%s_%06d.json", snap.FetchedAt.Format("20060102_150405"), snap.Seq)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot write %s: %w", board, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("snapshot write %s: %w", board, err)
	}

	// 写完立刻清理，桶内限量、过期天数整目录删，失败只记日志
	s.pruneBucket(board, dir)
	s.pruneDays(board, filepath.Join(s.root, snap.Source, snap.Category), snap.FetchedAt)
	return nil
}

func (s *Store) updateLatest(board string, snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.latest[board]; cur != nil && cur.Seq >= snap.Seq {
		log.Printf("snapshot %s: stale seq %d (latest %d), keep newer result", board, snap.Seq, cur.Seq)
		return
	}
	s.latest[board] = snap.Listing
	if s.seqs[board] < snap.Seq {
		s.seqs[board] = snap.Seq
	}
}

func (s *Store) boardLock(board string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boards[board] == nil {
		s.boards[board] = &sync.Mutex{}
	}
	return s.boards[board]
}

// pruneBucket 小时桶内只留最新 maxFilesPerBucket 个文件。
// 文件名按时间和序号编码，字典序就是时间序。
func (s *Store) pruneBucket(board, dir string) {
	if s.maxFilesPerBucket <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("snapshot prune %s: %v", board, err)
		return
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "hot_") && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, e.Name())
		}
	}
	for i := 0; i < len(files)-s.maxFilesPerBucket; i++ {
		if err := os.Remove(filepath.Join(dir, files[i])); err != nil {
			log.Printf("snapshot prune %s: %v", board, err)
		}
	}
}

// pruneDays 删掉超过保留天数的整个日期目录
func (s *Store) pruneDays(board, categoryDir string, now time.Time) {
	if s.keepDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -s.keepDays).Format("20060102")
	entries, err := os.ReadDir(categoryDir)
	if err != nil {
		log.Printf("snapshot prune %s: %v", board, err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) != 8 {
			continue
		}
		if e.Name() < cutoff {
			if err := os.RemoveAll(filepath.Join(categoryDir, e.Name())); err != nil {
				log.Printf("snapshot prune %s: %v", board, err)
			}
		}
	}
}

// LoadLatestFromDisk 启动时从磁盘回填各板的最新榜单和序号水位，
// 能读多少读多少，单板的坏文件跳过不影响其它板。
func (s *Store) LoadLatestFromDisk() {
	sources, err := os.ReadDir(s.root)
	if err != nil {
		log.Printf("snapshot warm: %v", err)
		return
	}
	for _, src := range sources {
		if !src.IsDir() {
			continue
		}
		cats, err := os.ReadDir(filepath.Join(s.root, src.Name()))
		if err != nil {
			continue
		}
		for _, cat := range cats {
			if !cat.IsDir() {
				continue
			}
			s.warmBoard(src.Name(), cat.Name())
		}
	}
}

func (s *Store) warmBoard(source, category string) {
	board := source + "/" + category
	path := s.newestFile(filepath.Join(s.root, source, category))
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("snapshot warm %s: %v", board, err)
		return
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Listing == nil {
		log.Printf("snapshot warm %s: bad file %s", board, filepath.Base(path))
		return
	}
	s.updateLatest(board, &snap)
	log.Printf("snapshot warm %s: seq %d, %d items", board, snap.Seq, len(snap.Listing.Items))
}

// newestFile 目录名和文件名都按时间编码，逐层取字典序最大的一个
func (s *Store) newestFile(categoryDir string) string {
	day := newestEntry(categoryDir, true)
	if day == "" {
		return ""
	}
	hour := newestEntry(filepath.Join(categoryDir, day), true)
	if hour == "" {
		return ""
	}
	file := newestEntry(filepath.Join(categoryDir, day, hour), false)
	if file == "" {
		return ""
	}
	return filepath.Join(categoryDir, day, hour, file)
}

func newestEntry(dir string, wantDir bool) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.IsDir() != wantDir {
			continue
		}
		if !wantDir && (!strings.HasPrefix(e.Name(), "hot_") || !strings.HasSuffix(e.Name(), ".json")) {
			continue
		}
		return e.Name()
	}
	return ""
}
