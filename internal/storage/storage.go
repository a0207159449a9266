package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lemon8866/hotboard/internal/model"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrArchiveDisabled 表示未配置 Postgres，归档查询不可用
var ErrArchiveDisabled = errors.New("storage: archive disabled")

// HotItem 是热榜条目的归档行，同一条目反复上榜时更新而不是重复插入
type HotItem struct {
	ID       string `gorm:"primaryKey;size:40" json:"id"` // sha1(source:category:item_key)
	Source   string `gorm:"size:64;index:idx_hot_items_board" json:"source"`
	Category string `gorm:"size:64;index:idx_hot_items_board" json:"category"`
	ItemKey  string `gorm:"size:256" json:"itemKey"`
	Title    string `gorm:"size:512" json:"title"`
	URL      string `gorm:"size:1024" json:"url"`
	// 热度与发布时间都可能缺失，用指针保留 NULL，与 0 区分
	Score        *int64            `gorm:"index" json:"score"`
	ScoreDisplay string            `gorm:"size:64" json:"scoreDisplay"`
	Tag          string            `gorm:"size:64" json:"tag"`
	TagKind      string            `gorm:"size:32;index" json:"tagKind"`
	Rank         int               `json:"rank"`
	PublishedAt  *time.Time        `gorm:"index" json:"publishedAt"`
	Extra        datatypes.JSONMap `gorm:"type:jsonb" json:"extra"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStore 初始化归档与缓存。dsn 为空时关闭归档，redisAddr 为空时关闭缓存，
// 两者都不影响内存里的榜单服务
func NewStore(dsn, redisAddr string) (*Store, error) {
	s := &Store{}

	if dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&HotItem{}); err != nil {
			return nil, err
		}
		s.DB = db
	} else {
		log.Printf("warn: POSTGRES_DSN empty, archive disabled")
	}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
		s.Redis = rdb
	}

	return s, nil
}

// 东八区，用于按日期筛选归档
var locEast8 *time.Location

func init() {
	locEast8, _ = time.LoadLocation("Asia/Shanghai")
	if locEast8 == nil {
		locEast8 = time.FixedZone("CST", 8*3600)
	}
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误（部分源可能含 GBK/混编）
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度（例如 varchar(512)）。
// 防止外部服务返回异常长文本导致入库失败。
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// archiveID 计算归档主键，同一榜单同一条目始终落到同一行
func archiveID(source, category, key string) string {
	h := sha1.Sum([]byte(source + ":" + category + ":" + key))
	return hex.EncodeToString(h[:])
}

// SaveListing 把一轮归一化后的榜单写入归档，已存在的条目更新热度与名次
func (s *Store) SaveListing(l *model.Listing) error {
	if s == nil || s.DB == nil {
		return nil
	}
	for i, it := range l.Items {
		id := archiveID(l.Source, l.Category, it.Key)
		title := truncateRunesDB(toValidUTF8(it.Title), 512)
		tag := toValidUTF8(it.Tag)
		var pub *time.Time
		if it.Timestamp != nil {
			t := time.Unix(*it.Timestamp, 0)
			pub = &t
		}

		row := &HotItem{
			ID:           id,
			Source:       l.Source,
			Category:     l.Category,
			ItemKey:      it.Key,
			Title:        title,
			URL:          it.URL,
			Score:        it.Score,
			ScoreDisplay: it.ScoreDisplay,
			Tag:          tag,
			TagKind:      string(it.TagKind),
			Rank:         i + 1,
			PublishedAt:  pub,
			Extra:        datatypes.JSONMap(it.Extra),
		}

		// 以内容主键幂等，已存在时刷新本轮看到的热度、名次与标签
		if err := s.DB.Where("id = ?", id).FirstOrCreate(row).Error; err != nil {
			return fmt.Errorf("archive %s/%s: %w", l.Source, l.Category, err)
		}
		_ = s.DB.Model(row).Updates(map[string]any{
			"title":         title,
			"url":           it.URL,
			"score":         it.Score,
			"score_display": it.ScoreDisplay,
			"tag":           tag,
			"tag_kind":      string(it.TagKind),
			"rank":          i + 1,
			"published_at":  pub,
			"extra":         datatypes.JSONMap(it.Extra),
		}).Error
	}

	// 这里不做按 key 通配删除，完全依赖短 TTL 的缓存自然过期，
	// 避免无效的通配符删除和额外的 Redis 扫描。
	return nil
}

// ListItems 按榜单与排序查询归档条目，并使用 Redis 做简单缓存
// source / category: 可为空，为空表示不过滤
// sort: hot(默认) / latest
// date: 可选，格式 2006-01-02，指定则只返回该日期（东八区）更新过的数据
func (s *Store) ListItems(source, category, sort string, limit int, date string) ([]HotItem, error) {
	if s == nil || s.DB == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if sort == "" {
		sort = "hot"
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("hotboard:items:%s:%s:%s:%d:%s", source, category, sort, limit, date)

	// L2: Redis 缓存
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []HotItem
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	// DB 兜底
	db := s.DB.Model(&HotItem{})
	if source != "" {
		db = db.Where("source = ?", source)
	}
	if category != "" {
		db = db.Where("category = ?", category)
	}
	if date != "" {
		if day, err := time.ParseInLocation("2006-01-02", date, locEast8); err == nil {
			db = db.Where("updated_at >= ? AND updated_at < ?", day, day.AddDate(0, 0, 1))
		}
	}
	switch sort {
	case "latest":
		db = db.Order("published_at DESC NULLS LAST").Order("updated_at DESC")
	default:
		db = db.Order("score DESC NULLS LAST").Order("updated_at DESC")
	}

	var list []HotItem
	if err := db.Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	// 回写缓存（5 分钟，采集周期内的重复查询都走缓存）
	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}
