package query

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lemon8866/hotboard/internal/model"
)

func iptr(n int64) *int64 { return &n }

func sample() []model.Item {
	return []model.Item{
		{Key: "a", Title: "高热度话题", Score: iptr(9000), TagKind: model.TagHot, Tag: "热"},
		{Key: "b", Title: "没有热度的话题", Extra: map[string]any{"desc": "一条说明 DESC 文案"}},
		{Key: "c", Title: "低热度话题", Score: iptr(100), Timestamp: iptr(1700000100)},
		{Key: "d", Title: "新话题", Score: iptr(9000), TagKind: model.TagNew, Tag: "新", Timestamp: iptr(1700000000)},
	}
}

func TestSortByScoreNullsLastBothDirections(t *testing.T) {
	items := sample()

	desc := SortBy(items, FieldScore, true)
	if desc[len(desc)-1].Key != "b" {
		t.Fatalf("desc: missing score should sort last, got tail %q", desc[len(desc)-1].Key)
	}
	if desc[0].Key != "a" || desc[1].Key != "d" {
		t.Fatalf("desc sort not stable for equal scores: %q %q", desc[0].Key, desc[1].Key)
	}

	asc := SortBy(items, FieldScore, false)
	if asc[len(asc)-1].Key != "b" {
		t.Fatalf("asc: missing score should still sort last, got tail %q", asc[len(asc)-1].Key)
	}
	if asc[0].Key != "c" {
		t.Fatalf("asc head = %q, want c", asc[0].Key)
	}

	// 原切片不能被改动
	if items[0].Key != "a" || items[3].Key != "d" {
		t.Fatalf("SortBy mutated its input: %+v", items)
	}
}

func TestSortByUnknownFieldKeepsOrder(t *testing.T) {
	items := sample()
	out := SortBy(items, "rank", true)
	for i := range items {
		if out[i].Key != items[i].Key {
			t.Fatalf("unknown field should keep order, pos %d = %q", i, out[i].Key)
		}
	}
}

func TestFilterByThresholdDropsMissing(t *testing.T) {
	out := FilterByThreshold(sample(), FieldScore, 100)
	if len(out) != 3 {
		t.Fatalf("filtered = %d, want 3 (item without score dropped)", len(out))
	}

	out = FilterByThreshold(sample(), FieldScore, 5000)
	if len(out) != 2 {
		t.Fatalf("filtered = %d, want 2", len(out))
	}

	out = FilterByThreshold(sample(), FieldTimestamp, 1700000050)
	if len(out) != 1 || out[0].Key != "c" {
		t.Fatalf("timestamp filter wrong: %+v", out)
	}

	if out = FilterByThreshold(sample(), "bogus", 0); len(out) != 0 {
		t.Fatalf("unknown field should filter everything")
	}
}

func TestSearchTitleAndDescCaseInsensitive(t *testing.T) {
	items := sample()

	out := Search(items, "高热度")
	if len(out) != 1 || out[0].Key != "a" {
		t.Fatalf("title search wrong: %+v", out)
	}

	// desc 藏在 Extra 里，大小写不敏感
	out = Search(items, "desc 文案")
	if len(out) != 1 || out[0].Key != "b" {
		t.Fatalf("desc search wrong: %+v", out)
	}

	if out = Search(items, ""); len(out) != len(items) {
		t.Fatalf("empty keyword should return all, got %d", len(out))
	}

	if out = Search(items, "不存在的词"); len(out) != 0 {
		t.Fatalf("no-hit search should be empty, got %d", len(out))
	}
}

func TestGroupByTagSkipsUntagged(t *testing.T) {
	groups := GroupByTag(sample())
	if len(groups[model.TagHot]) != 1 || len(groups[model.TagNew]) != 1 {
		t.Fatalf("groups wrong: %v", groups)
	}
	if _, ok := groups[""]; ok {
		t.Fatalf("untagged items must not form a group")
	}
}

func TestPaginateEdges(t *testing.T) {
	items := sample()

	page, total := Paginate(items, 1, 3)
	if len(page) != 3 || total != 2 {
		t.Fatalf("page1 = %d items, total %d; want 3, 2", len(page), total)
	}

	page, total = Paginate(items, 2, 3)
	if len(page) != 1 || page[0].Key != "d" {
		t.Fatalf("page2 wrong: %+v", page)
	}

	// 越界返回空页，不是错误
	page, total = Paginate(items, 9, 3)
	if len(page) != 0 || total != 2 {
		t.Fatalf("out-of-range page = %d items, total %d", len(page), total)
	}

	// size <= 0 表示不分页
	page, total = Paginate(items, 1, 0)
	if len(page) != len(items) || total != 1 {
		t.Fatalf("unpaged = %d items, total %d", len(page), total)
	}

	page, _ = Paginate([]model.Item{}, 1, 10)
	if len(page) != 0 {
		t.Fatalf("empty input should page to empty")
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	items := sample()
	data, err := ExportJSON(items)
	if err != nil {
		t.Fatalf("ExportJSON error: %v", err)
	}

	var back []model.Item
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("round trip unmarshal error: %v", err)
	}
	if len(back) != len(items) {
		t.Fatalf("round trip lost items: %d vs %d", len(back), len(items))
	}

	// 缺失的 score 反序列化后仍然缺失，而不是变成 0
	if back[1].Score != nil {
		t.Fatalf("missing score should stay missing, got %v", *back[1].Score)
	}
	if back[0].Score == nil || *back[0].Score != 9000 {
		t.Fatalf("score lost in round trip: %v", back[0].Score)
	}
	if back[1].Extra["desc"] != "一条说明 DESC 文案" {
		t.Fatalf("extra lost in round trip: %v", back[1].Extra)
	}
}

func TestExportCSVFlattensAndDropsExtra(t *testing.T) {
	data, err := ExportCSV(sample())
	if err != nil {
		t.Fatalf("ExportCSV error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 { // 表头 + 4 行
		t.Fatalf("csv lines = %d, want 5", len(lines))
	}
	if lines[0] != "rank,key,title,url,score,score_display,tag,tag_kind,timestamp" {
		t.Fatalf("csv header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,a,") {
		t.Fatalf("rank column wrong: %q", lines[1])
	}
	if strings.Contains(string(data), "DESC 文案") {
		t.Fatalf("csv must drop extra fields")
	}
	// 缺失的 score 导出为空串
	if !strings.Contains(lines[2], ",没有热度的话题,,,") {
		t.Fatalf("missing score should be empty cell: %q", lines[2])
	}
}
