package processor

import "testing"

func TestResolveIntAcceptsAllHotValueShapes(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{12345, 12345, true},
		{int64(7), 7, true},
		{3.0, 3, true},
		{"42", 42, true},
		{"1.5万", 15000, true},
		{"3亿", 300000000, true},
		{"936.1万", 9361000, true},
		{"2.3k", 2300, true},
		{"12w", 120000, true},
		{"1,234,567", 1234567, true},
		{"+12", 12, true},
		{"10万+", 100000, true},
		{"１２３", 123, true}, // 全角数字
		{"1039 万", 10390000, true},
		{"", 0, false},
		{"爆", 0, false},
		{nil, 0, false},
		{[]any{1}, 0, false},
	}

	for _, c := range cases {
		got, ok := ResolveInt(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ResolveInt(%v) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestResolveIntSourceSuffixOverridesDefault(t *testing.T) {
	// 源自带的后缀表可以新增后缀，也可以覆盖默认倍率
	if n, ok := resolveInt("3千", map[string]float64{"千": 1e3}); !ok || n != 3000 {
		t.Fatalf("custom suffix: got (%d, %v), want (3000, true)", n, ok)
	}
	if n, ok := resolveInt("2万", map[string]float64{"万": 1}); !ok || n != 2 {
		t.Fatalf("override suffix: got (%d, %v), want (2, true)", n, ok)
	}
}

func TestResolveBoolRecognizesStringForms(t *testing.T) {
	cases := []struct {
		in    any
		want  bool
		known bool
	}{
		{true, true, true},
		{false, false, true},
		{"1", true, true},
		{"0", false, true},
		{"true", true, true},
		{"Yes", true, true},
		{"no", false, true},
		{1.0, true, true},
		{0.0, false, true},
		{"嗯", false, false},
		{nil, false, false},
	}

	for _, c := range cases {
		got, known := ResolveBool(c.in)
		if got != c.want || known != c.known {
			t.Fatalf("ResolveBool(%v) = (%v, %v), want (%v, %v)", c.in, got, known, c.want, c.known)
		}
	}
}

func TestResolveFirstHonorsAliasPriority(t *testing.T) {
	rec := map[string]any{
		"mobile_url": "https://m.example.com",
		"www_url":    "https://www.example.com",
	}

	v, ok := ResolveFirst(rec, []string{"link", "mobile_url", "www_url"})
	if !ok || v != "https://m.example.com" {
		t.Fatalf("ResolveFirst = (%v, %v), want mobile_url first", v, ok)
	}

	// nil 值视为缺失，继续找下一个别名
	rec["mobile_url"] = nil
	v, ok = ResolveFirst(rec, []string{"link", "mobile_url", "www_url"})
	if !ok || v != "https://www.example.com" {
		t.Fatalf("ResolveFirst after nil = (%v, %v), want www_url", v, ok)
	}

	if _, ok := ResolveFirst(rec, []string{"absent"}); ok {
		t.Fatalf("ResolveFirst should report missing aliases")
	}
}

func TestResolveTimestampUnits(t *testing.T) {
	if ts, ok := ResolveTimestamp(1700000000, UnitSeconds); !ok || ts != 1700000000 {
		t.Fatalf("seconds: got (%d, %v)", ts, ok)
	}
	if ts, ok := ResolveTimestamp(1700000000123.0, UnitMillis); !ok || ts != 1700000000 {
		t.Fatalf("millis: got (%d, %v)", ts, ok)
	}
	if ts, ok := ResolveTimestamp("1700000000", UnitSeconds); !ok || ts != 1700000000 {
		t.Fatalf("string seconds: got (%d, %v)", ts, ok)
	}
	if _, ok := ResolveTimestamp(0, UnitSeconds); ok {
		t.Fatalf("zero timestamp should be treated as missing")
	}
	if _, ok := ResolveTimestamp("not-a-time", UnitSeconds); ok {
		t.Fatalf("garbage timestamp should be treated as missing")
	}
}

func TestScoreFromTextExtractsEmbeddedCounts(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"198.2万阅读", 1982000, true},
		{"1039 万热度", 10390000, true},
		{"热度 520", 520, true},
		{"没有数字", 0, false},
		{"", 0, false},
	}

	for _, c := range cases {
		got, ok := ScoreFromText(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ScoreFromText(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFormatScoreSynthesizesWanForm(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{9999, "9999"},
		{10000, "1.0万"},
		{15000, "1.5万"},
		{123456, "12.3万"},
		{9361000, "936.1万"},
	}

	for _, c := range cases {
		if got := FormatScore(c.in); got != c.want {
			t.Fatalf("FormatScore(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
