package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/lemon8866/hotboard/internal/model"
)

// ErrRecordSkipped 标题和 key 都解析不出来的废记录，跳过不算失败
var ErrRecordSkipped = errors.New("record has neither title nor key")

// DerivedRule 由若干原始字段加权算出的衍生指标，结果写进 Extra。
// 掘金的 popularity_index = (like*2 + comment*3 + collect*4) / 100 就是一条这样的规则。
type DerivedRule struct {
	Name    string
	Weights map[string]float64
	Divisor float64
}

// Table 用一张声明式映射表描述一个源：请求参数、字段别名优先级、标签词表、
// URL 拼接规则、时间戳单位。接一个新源基本只需要加一张表。
type Table struct {
	Source   string
	Category string

	// rebang 接口的请求参数，Tab 为空表示这是直连源，不走 rebang
	Tab      string
	SubTab   string
	DateType string

	KeyAliases     []string
	TitleAliases   []string
	URLAliases     []string
	ScoreAliases   []string
	DisplayAliases []string
	DescAliases    []string
	TagAliases     []string
	TimeAliases    []string
	TimeUnit       TimeUnit

	// TagVocab 原始标签 -> 归一化类别；表里没有的标签原文保留、类别记 unknown
	TagVocab map[string]model.TagKind

	URLBase          string // 相对链接的补全前缀
	URLTemplate      string // 用单个字段拼落地页，如 bilibili 的 bvid
	URLTemplateField string

	ScoreSuffixes map[string]float64 // 本源特有的数值后缀，可覆盖默认倍率
	ScoreFromText []string           // 数值混在文案里的字段（雪球的 reason）

	// BoolFields / IntFields 在 Extra 里把 "0"/"1"、数字字符串归一成真正的类型
	BoolFields []string
	IntFields  []string

	Derived []DerivedRule

	// 覆盖调度器的默认抓取周期和抖动，零值表示用全局配置
	Interval time.Duration
	Jitter   time.Duration
}

// Adapter 按映射表把一个源的原始记录规范化成统一条目
type Adapter struct {
	table Table
}

func NewAdapter(t Table) *Adapter {
	return &Adapter{table: t}
}

func (a *Adapter) Table() Table     { return a.table }
func (a *Adapter) Source() string   { return a.table.Source }
func (a *Adapter) Category() string { return a.table.Category }
func (a *Adapter) Board() string    { return a.table.Source + "/" + a.table.Category }

// Normalize 规范化单条原始记录。被别名表成功认领的字段从 Extra 里去掉，
// 认领失败或没人认领的原样保留。key 拿不到就用内容哈希兜底，保证永远非空。
func (a *Adapter) Normalize(rec map[string]any) (model.Item, error) {
	t := a.table
	used := make(map[string]bool, 8)

	title := takeString(rec, t.TitleAliases, used)
	key := takeString(rec, t.KeyAliases, used)
	if title == "" && key == "" {
		return model.Item{}, ErrRecordSkipped
	}

	it := model.Item{Title: title}
	it.URL = a.resolveURL(rec, used)

	if key == "" {
		key = contentHash(t.Source, t.Category, title, it.URL)
	}
	it.Key = key

	if n, ok := takeInt(rec, t.ScoreAliases, t.ScoreSuffixes, used); ok {
		it.Score = &n
	} else {
		for _, f := range t.ScoreFromText {
			if n, ok := ScoreFromText(ResolveString(rec[f])); ok {
				it.Score = &n
				break
			}
		}
	}

	it.ScoreDisplay = takeString(rec, t.DisplayAliases, used)
	if it.ScoreDisplay == "" && it.Score != nil {
		it.ScoreDisplay = FormatScore(*it.Score)
	}

	it.Tag, it.TagKind = a.resolveTag(rec, used)

	if ts, ok := takeTime(rec, t.TimeAliases, t.TimeUnit, used); ok {
		it.Timestamp = &ts
	}

	desc := takeString(rec, t.DescAliases, used)
	it.Extra = a.buildExtra(rec, desc, used)
	return it, nil
}

// NormalizeListing 规范化整个信封。坏记录跳过并记 warn，不影响其余条目；
// 全部跳光得到的空榜单也是合法结果。
func (a *Adapter) NormalizeListing(env *Envelope, fetchedAt time.Time) *model.Listing {
	items := make([]model.Item, 0, len(env.Records))
	for i, rec := range env.Records {
		it, err := a.Normalize(rec)
		if err != nil {
			log.Printf("skip %s record %d: %v", a.Board(), i, err)
			continue
		}
		items = append(items, it)
	}

	l := &model.Listing{
		Source:          a.table.Source,
		Category:        a.table.Category,
		CurrentPage:     env.CurrentPage,
		TotalPage:       env.TotalPage,
		Items:           items,
		LastListTime:    env.LastListTime,
		NextRefreshTime: env.NextRefreshTime,
		FetchedAt:       fetchedAt,
	}
	if l.CurrentPage < 1 {
		l.CurrentPage = 1
	}
	if l.TotalPage < l.CurrentPage {
		l.TotalPage = l.CurrentPage
	}
	return l
}

func (a *Adapter) resolveURL(rec map[string]any, used map[string]bool) string {
	t := a.table
	u := takeString(rec, t.URLAliases, used)
	if u == "" && t.URLTemplate != "" && t.URLTemplateField != "" {
		if v := ResolveString(rec[t.URLTemplateField]); v != "" {
			used[t.URLTemplateField] = true
			u = fmt.Sprintf(t.URLTemplate, v)
		}
	}
	if u != "" && t.URLBase != "" && !strings.HasPrefix(u, "http") {
		u = strings.TrimSuffix(t.URLBase, "/") + "/" + strings.TrimPrefix(u, "/")
	}
	return u
}

// resolveTag 词表命中记归一化类别；"0" 和空串当没有标签；其余原文保留、类别 unknown
func (a *Adapter) resolveTag(rec map[string]any, used map[string]bool) (string, model.TagKind) {
	raw := takeString(rec, a.table.TagAliases, used)
	if raw == "" {
		return "", ""
	}
	if kind, ok := a.table.TagVocab[raw]; ok {
		return raw, kind
	}
	if raw == "0" {
		return "", ""
	}
	return raw, model.TagUnknown
}

func (a *Adapter) buildExtra(rec map[string]any, desc string, used map[string]bool) map[string]any {
	t := a.table
	extra := make(map[string]any, len(rec))
	for k, v := range rec {
		if !used[k] {
			extra[k] = v
		}
	}

	// desc 不是条目的一级字段，但搜索要扫它，归一个固定名字放进 Extra
	if desc != "" {
		extra["desc"] = desc
	}

	for _, f := range t.BoolFields {
		if b, ok := ResolveBool(extra[f]); ok {
			extra[f] = b
		}
	}
	for _, f := range t.IntFields {
		if n, ok := ResolveInt(extra[f]); ok {
			extra[f] = n
		}
	}

	for _, rule := range t.Derived {
		if v, ok := applyDerived(rec, rule); ok {
			extra[rule.Name] = v
		}
	}

	if len(extra) == 0 {
		return nil
	}
	return extra
}

func applyDerived(rec map[string]any, rule DerivedRule) (float64, bool) {
	sum := 0.0
	found := false
	for f, w := range rule.Weights {
		if n, ok := ResolveInt(rec[f]); ok {
			sum += float64(n) * w
			found = true
		}
	}
	if !found {
		return 0, false
	}
	if rule.Divisor != 0 {
		sum /= rule.Divisor
	}
	return math.Round(sum*100) / 100, true
}

// takeString 按优先级找第一个能解析出非空字符串的别名，命中才算认领
func takeString(rec map[string]any, aliases []string, used map[string]bool) string {
	for _, a := range aliases {
		v, ok := rec[a]
		if !ok || v == nil {
			continue
		}
		if s := ResolveString(v); s != "" {
			used[a] = true
			return s
		}
	}
	return ""
}

func takeInt(rec map[string]any, aliases []string, suffixes map[string]float64, used map[string]bool) (int64, bool) {
	for _, a := range aliases {
		v, ok := rec[a]
		if !ok || v == nil {
			continue
		}
		if n, ok := resolveInt(v, suffixes); ok {
			used[a] = true
			return n, true
		}
	}
	return 0, false
}

func takeTime(rec map[string]any, aliases []string, unit TimeUnit, used map[string]bool) (int64, bool) {
	for _, a := range aliases {
		v, ok := rec[a]
		if !ok || v == nil {
			continue
		}
		if ts, ok := ResolveTimestamp(v, unit); ok {
			used[a] = true
			return ts, true
		}
	}
	return 0, false
}

// contentHash key 缺失时的兜底，同一条内容重复抓取会得到同一个 key
func contentHash(parts ...string) string {
	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
