// Package query 提供榜单条目的纯内存查询操作：排序、过滤、搜索、分组、分页、导出。
// 所有函数都不改动传入的切片，需要重排时返回副本。
package query

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/lemon8866/hotboard/internal/model"
)

// 可排序/可过滤的字段名
const (
	FieldScore     = "score"
	FieldTimestamp = "timestamp"
	FieldTitle     = "title"
	FieldKey       = "key"
)

// SortBy 稳定排序。Score/Timestamp 缺失的条目无论升序降序都排在最后，
// 不认识的字段名原序返回。
func SortBy(items []model.Item, field string, desc bool) []model.Item {
	out := clone(items)
	switch field {
	case FieldScore:
		sort.SliceStable(out, func(i, j int) bool {
			return lessIntPtr(out[i].Score, out[j].Score, desc)
		})
	case FieldTimestamp:
		sort.SliceStable(out, func(i, j int) bool {
			return lessIntPtr(out[i].Timestamp, out[j].Timestamp, desc)
		})
	case FieldTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return lessStr(out[i].Title, out[j].Title, desc)
		})
	case FieldKey:
		sort.SliceStable(out, func(i, j int) bool {
			return lessStr(out[i].Key, out[j].Key, desc)
		})
	}
	return out
}

// FilterByThreshold 留下字段值 >= min 的条目，字段缺失的一律过滤掉
func FilterByThreshold(items []model.Item, field string, min int64) []model.Item {
	if field != FieldScore && field != FieldTimestamp {
		return []model.Item{}
	}
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		v := it.Score
		if field == FieldTimestamp {
			v = it.Timestamp
		}
		if v != nil && *v >= min {
			out = append(out, it)
		}
	}
	return out
}

// Search 在标题和 Extra 里的 desc 上做大小写不敏感的子串匹配，空关键词返回全部
func Search(items []model.Item, keyword string) []model.Item {
	if strings.TrimSpace(keyword) == "" {
		return clone(items)
	}
	fold := cases.Fold()
	kw := fold.String(keyword)

	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(fold.String(it.Title), kw) {
			out = append(out, it)
			continue
		}
		if d, ok := it.Extra["desc"].(string); ok && strings.Contains(fold.String(d), kw) {
			out = append(out, it)
		}
	}
	return out
}

// GroupByTag 按归一化标签类别分组，没有标签的条目不进任何组
func GroupByTag(items []model.Item) map[model.TagKind][]model.Item {
	groups := make(map[model.TagKind][]model.Item)
	for _, it := range items {
		if it.TagKind == "" {
			continue
		}
		groups[it.TagKind] = append(groups[it.TagKind], it)
	}
	return groups
}

// Paginate 取第 page 页（从 1 开始），返回该页条目和总页数。
// size <= 0 表示不分页；越界的页码返回空页而不是错误。
func Paginate(items []model.Item, page, size int) ([]model.Item, int) {
	if size <= 0 {
		return clone(items), 1
	}
	total := (len(items) + size - 1) / size
	if total == 0 {
		total = 1
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []model.Item{}, total
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return clone(items[start:end]), total
}

// ExportJSON 无损导出，Extra 原样带出
func ExportJSON(items []model.Item) ([]byte, error) {
	return json.Marshal(items)
}

// ExportCSV 扁平导出核心字段，Extra 丢弃。rank 是条目在传入切片里的名次。
func ExportCSV(items []model.Item) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"rank", "key", "title", "url", "score", "score_display", "tag", "tag_kind", "timestamp"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i, it := range items {
		row := []string{
			strconv.Itoa(i + 1),
			it.Key,
			it.Title,
			it.URL,
			intPtrField(it.Score),
			it.ScoreDisplay,
			it.Tag,
			string(it.TagKind),
			intPtrField(it.Timestamp),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clone(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}

// lessIntPtr 缺失值视为无穷大，升降序都垫底
func lessIntPtr(a, b *int64, desc bool) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	if desc {
		return *a > *b
	}
	return *a < *b
}

func lessStr(a, b string, desc bool) bool {
	if desc {
		return a > b
	}
	return a < b
}

func intPtrField(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
