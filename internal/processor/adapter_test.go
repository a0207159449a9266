package processor

import (
	"errors"
	"testing"
	"time"

	"github.com/lemon8866/hotboard/internal/model"
)

func mustAdapter(t *testing.T, source, category string) *Adapter {
	t.Helper()
	a, ok := NewRegistry(BuiltinTables()).Get(source, category)
	if !ok {
		t.Fatalf("builtin adapter %s/%s not registered", source, category)
	}
	return a
}

func TestNormalizeTopRecord(t *testing.T) {
	a := mustAdapter(t, "top", "today")
	rec := map[string]any{
		"item_key":  "abc123",
		"title":     "某个话题",
		"link":      "https://example.com/t/1",
		"hot_value": 123456.0,
		"is_ad":     "1",
		"icon":      "icons/xx.png",
	}

	it, err := a.Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if it.Key != "abc123" || it.Title != "某个话题" || it.URL != "https://example.com/t/1" {
		t.Fatalf("core fields wrong: %+v", it)
	}
	if it.Score == nil || *it.Score != 123456 {
		t.Fatalf("score = %v, want 123456", it.Score)
	}
	// 源没给展示值时合成 X.X万
	if it.ScoreDisplay != "12.3万" {
		t.Fatalf("score display = %q, want 12.3万", it.ScoreDisplay)
	}
	// is_ad 归一成真正的 bool，icon 原样保留
	if ad, ok := it.Extra["is_ad"].(bool); !ok || !ad {
		t.Fatalf("is_ad = %v, want true", it.Extra["is_ad"])
	}
	if it.Extra["icon"] != "icons/xx.png" {
		t.Fatalf("icon lost from extra: %v", it.Extra)
	}
}

func TestNormalizeKeepsProvidedDisplay(t *testing.T) {
	a := mustAdapter(t, "top", "today")
	it, err := a.Normalize(map[string]any{
		"item_key":         "k",
		"title":            "t",
		"hot_value":        20000.0,
		"hot_value_format": "2万",
	})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if it.ScoreDisplay != "2万" {
		t.Fatalf("display = %q, want upstream value kept", it.ScoreDisplay)
	}
}

func TestNormalizeURLAliasPrioritySkipsEmpty(t *testing.T) {
	a := mustAdapter(t, "top", "today")
	it, err := a.Normalize(map[string]any{
		"item_key":   "k",
		"title":      "t",
		"link":       "",
		"mobile_url": "https://m.example.com/x",
	})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if it.URL != "https://m.example.com/x" {
		t.Fatalf("url = %q, want mobile_url fallback", it.URL)
	}
}

func TestNormalizeTagVocab(t *testing.T) {
	a := mustAdapter(t, "toutiao", "hot")

	it, _ := a.Normalize(map[string]any{"item_key": "1", "title": "t", "label": "boom"})
	if it.Tag != "boom" || it.TagKind != model.TagBoom {
		t.Fatalf("known label: tag=%q kind=%q", it.Tag, it.TagKind)
	}

	// 词表外的标签原文保留，类别记 unknown
	it, _ = a.Normalize(map[string]any{"item_key": "2", "title": "t", "label": "挑战"})
	if it.Tag != "挑战" || it.TagKind != model.TagUnknown {
		t.Fatalf("unknown label: tag=%q kind=%q", it.Tag, it.TagKind)
	}

	// 数字 0 等于没有标签
	tieba := mustAdapter(t, "baidu-tieba", "topic")
	it, _ = tieba.Normalize(map[string]any{"item_key": "3", "name": "吧内话题", "topic_tag": 0.0})
	if it.Tag != "" || it.TagKind != "" {
		t.Fatalf("zero tag should be absent: tag=%q kind=%q", it.Tag, it.TagKind)
	}
}

func TestNormalizeURLTemplates(t *testing.T) {
	bili := mustAdapter(t, "bilibili", "popular")
	it, _ := bili.Normalize(map[string]any{"item_key": "b1", "title": "视频", "bvid": "BV1xx411c7mD"})
	if it.URL != "https://www.bilibili.com/video/BV1xx411c7mD" {
		t.Fatalf("bilibili url = %q", it.URL)
	}

	weibo := mustAdapter(t, "weibo", "realtime")
	it, _ = weibo.Normalize(map[string]any{"word": "热搜词", "note": "热搜词条", "num": 1234567.0})
	if it.URL != "https://s.weibo.com/weibo?q=热搜词" {
		t.Fatalf("weibo url = %q", it.URL)
	}
	if it.Title != "热搜词条" {
		t.Fatalf("weibo title should prefer note: %q", it.Title)
	}
}

func TestNormalizeURLBaseCompletesRelativeLinks(t *testing.T) {
	a := NewAdapter(Table{
		Source:       "s",
		Category:     "c",
		KeyAliases:   []string{"id"},
		TitleAliases: []string{"title"},
		URLAliases:   []string{"link"},
		URLBase:      "https://example.com",
	})

	it, _ := a.Normalize(map[string]any{"id": "1", "title": "t", "link": "/p/123"})
	if it.URL != "https://example.com/p/123" {
		t.Fatalf("relative link not completed: %q", it.URL)
	}

	// 已经是绝对链接的不动
	it, _ = a.Normalize(map[string]any{"id": "2", "title": "t", "link": "https://other.com/x"})
	if it.URL != "https://other.com/x" {
		t.Fatalf("absolute link rewritten: %q", it.URL)
	}
}

func TestNormalizeKeyFallbackIsStableContentHash(t *testing.T) {
	a := mustAdapter(t, "weibo", "realtime")
	rec := map[string]any{"word": "词", "note": "词条", "num": 10.0}

	it1, err := a.Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	it2, _ := a.Normalize(rec)

	if it1.Key == "" {
		t.Fatalf("key must never be empty")
	}
	if it1.Key != it2.Key {
		t.Fatalf("content hash key not stable: %q vs %q", it1.Key, it2.Key)
	}
}

func TestNormalizeTimestampMillis(t *testing.T) {
	a := mustAdapter(t, "xueqiu", "news")
	it, _ := a.Normalize(map[string]any{
		"item_key":   "n1",
		"title":      "新闻",
		"www_url":    "https://xueqiu.com/x",
		"created_at": 1700000000123.0,
	})
	if it.Timestamp == nil || *it.Timestamp != 1700000000 {
		t.Fatalf("timestamp = %v, want 1700000000", it.Timestamp)
	}
}

func TestNormalizeScoreFromReasonText(t *testing.T) {
	a := mustAdapter(t, "xueqiu", "topic")
	it, _ := a.Normalize(map[string]any{
		"item_key": "x1",
		"title":    "话题",
		"reason":   "198.2万阅读",
	})
	if it.Score == nil || *it.Score != 1982000 {
		t.Fatalf("score from reason = %v, want 1982000", it.Score)
	}
	// reason 没被别名表认领，原文还在 Extra 里
	if it.Extra["reason"] != "198.2万阅读" {
		t.Fatalf("reason should stay in extra: %v", it.Extra)
	}
}

func TestNormalizeDerivedPopularityIndex(t *testing.T) {
	a := mustAdapter(t, "juejin", "all")
	it, _ := a.Normalize(map[string]any{
		"item_key":      "j1",
		"id":            "7001",
		"title":         "文章",
		"like":          100.0,
		"comment_count": 10.0,
		"collect":       5.0,
	})
	if it.URL != "https://juejin.cn/post/7001" {
		t.Fatalf("juejin url = %q", it.URL)
	}
	got, ok := it.Extra["popularity_index"].(float64)
	if !ok || got != 2.5 {
		t.Fatalf("popularity_index = %v, want 2.5", it.Extra["popularity_index"])
	}
}

func TestNormalizeDescGoesToExtra(t *testing.T) {
	a := mustAdapter(t, "baidu", "realtime")
	it, _ := a.Normalize(map[string]any{
		"item_key":  "b1",
		"word":      "搜索词",
		"desc":      "一段描述",
		"query":     "搜索词",
		"hot_score": "4567890",
	})
	if it.Extra["desc"] != "一段描述" {
		t.Fatalf("desc not normalized into extra: %v", it.Extra)
	}
	if it.URL != "https://www.baidu.com/s?wd=搜索词" {
		t.Fatalf("baidu url = %q", it.URL)
	}
	if it.Score == nil || *it.Score != 4567890 {
		t.Fatalf("score = %v", it.Score)
	}
}

func TestNormalizeListingSkipsBadRecordsKeepsOrder(t *testing.T) {
	a := mustAdapter(t, "toutiao", "hot")
	env := &Envelope{
		CurrentPage: 1,
		TotalPage:   1,
		Records: []map[string]any{
			{"item_key": "1", "title": "第一"},
			{"hot_value": "999"}, // 没有标题也没有 key，跳过
			{"item_key": "3", "title": "第三"},
		},
	}

	l := a.NormalizeListing(env, time.Unix(1700000000, 0))
	if len(l.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(l.Items))
	}
	if l.Items[0].Title != "第一" || l.Items[1].Title != "第三" {
		t.Fatalf("order not preserved: %+v", l.Items)
	}
	if l.Source != "toutiao" || l.Category != "hot" {
		t.Fatalf("board fields wrong: %s", l.Board())
	}
}

func TestNormalizeListingPageClamp(t *testing.T) {
	a := mustAdapter(t, "toutiao", "hot")

	l := a.NormalizeListing(&Envelope{CurrentPage: 3, TotalPage: 1}, time.Now())
	if l.TotalPage != 3 {
		t.Fatalf("total page should be clamped up to current: %d", l.TotalPage)
	}

	l = a.NormalizeListing(&Envelope{}, time.Now())
	if l.CurrentPage != 1 || l.TotalPage != 1 {
		t.Fatalf("zero pages should default to 1/1, got %d/%d", l.CurrentPage, l.TotalPage)
	}
}

func TestNormalizeRejectsRecordWithoutTitleAndKey(t *testing.T) {
	a := mustAdapter(t, "toutiao", "hot")
	_, err := a.Normalize(map[string]any{"hot_value": "1"})
	if !errors.Is(err, ErrRecordSkipped) {
		t.Fatalf("want ErrRecordSkipped, got %v", err)
	}
}

func TestRegistryMergeOverrides(t *testing.T) {
	r := NewRegistry(BuiltinTables())
	n := r.Len()

	// 覆盖已有的源不增加数量，新源追加在末尾
	r.Put(Table{Source: "toutiao", Category: "hot", TitleAliases: []string{"headline"}})
	if r.Len() != n {
		t.Fatalf("override should not grow registry: %d vs %d", r.Len(), n)
	}
	a, _ := r.Get("toutiao", "hot")
	if len(a.Table().TitleAliases) != 1 || a.Table().TitleAliases[0] != "headline" {
		t.Fatalf("override not applied: %v", a.Table().TitleAliases)
	}

	r.Put(Table{Source: "custom", Category: "list"})
	if r.Len() != n+1 {
		t.Fatalf("new table should grow registry")
	}
	all := r.All()
	if last := all[len(all)-1]; last.Board() != "custom/list" {
		t.Fatalf("new table should keep registration order, last = %s", last.Board())
	}
}
