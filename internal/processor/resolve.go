package processor

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// TimeUnit 源时间戳的单位提示，写在各源的映射表里
type TimeUnit int

const (
	UnitSeconds TimeUnit = iota
	UnitMillis
)

// scoreSuffixes 数值后缀的倍率表。各源可以通过 Table.ScoreSuffixes 追加或覆盖，
// 这里只放中文榜单里实际见过的几种。
var scoreSuffixes = map[string]float64{
	"万": 1e4,
	"亿": 1e8,
	"w": 1e4,
	"W": 1e4,
	"k": 1e3,
	"K": 1e3,
	"m": 1e6,
	"M": 1e6,
}

// scoreTextRe 从"198.2万阅读"、"1039 万热度"这类文案里抠出数值和倍率后缀
var scoreTextRe = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)*(?:\s*(?:万|亿|[kKwWmM]))?`)

// ResolveInt 把各种形态的热度值统一成 int64：
// 原生整数、浮点数、json.Number、数字字符串，以及带 万/亿 等倍率后缀的字符串。
// 解析不出来返回 false，绝不 panic。
func ResolveInt(v any) (int64, bool) {
	return resolveInt(v, nil)
}

func resolveInt(v any, extra map[string]float64) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
		return 0, false
	case string:
		return parseIntText(n, extra)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// parseIntText 处理字符串形态：全角数字转半角，去掉千分位逗号和正号，
// 再按后缀表换算倍率。
func parseIntText(s string, extra map[string]float64) (int64, bool) {
	s = strings.TrimSpace(width.Narrow.String(s))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimSuffix(s, "+")
	if s == "" {
		return 0, false
	}

	if num, mult, ok := splitSuffix(s, extra); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, false
		}
		return int64(math.Round(f * mult)), true
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return floatToInt(f)
	}
	return 0, false
}

// splitSuffix 先查每个源自带的后缀表（可覆盖默认倍率），再查默认表的单字符后缀
func splitSuffix(s string, extra map[string]float64) (num string, mult float64, ok bool) {
	for suf, m := range extra {
		if suf != "" && strings.HasSuffix(s, suf) {
			return strings.TrimSuffix(s, suf), m, true
		}
	}
	r, size := utf8.DecodeLastRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return "", 0, false
	}
	if m, hit := scoreSuffixes[string(r)]; hit {
		return s[:len(s)-size], m, true
	}
	return "", 0, false
}

// ResolveBool 识别原生 bool 和各源常见的字符串写法（"0"/"1"/"true"/"yes"）
func ResolveBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes":
			return true, true
		case "0", "false", "no":
			return false, true
		}
		return false, false
	case float64:
		return b != 0, true
	case int:
		return b != 0, true
	case json.Number:
		if i, err := b.Int64(); err == nil {
			return i != 0, true
		}
		return false, false
	default:
		return false, false
	}
}

// ResolveFirst 按别名优先级取第一个存在且非空的原始值
func ResolveFirst(rec map[string]any, aliases []string) (any, bool) {
	for _, a := range aliases {
		if v, ok := rec[a]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ResolveTimestamp 把源时间戳统一成 epoch 秒。0 和负数当作缺失处理。
func ResolveTimestamp(v any, unit TimeUnit) (int64, bool) {
	n, ok := ResolveInt(v)
	if !ok || n <= 0 {
		return 0, false
	}
	if unit == UnitMillis {
		n /= 1000
	}
	return n, true
}

// ResolveString 把标量统一成字符串，数字不带多余的小数零。容器类型直接放弃。
func ResolveString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// ScoreFromText 从"198.2万阅读"这类混着文案的字段里提取阅读量
func ScoreFromText(s string) (int64, bool) {
	m := scoreTextRe.FindString(s)
	if m == "" {
		return 0, false
	}
	return ResolveInt(m)
}

// FormatScore 合成展示用热度：一万以上用"X.X万"，否则原样十进制
func FormatScore(n int64) string {
	if n >= 10000 {
		return strconv.FormatFloat(float64(n)/10000, 'f', 1, 64) + "万"
	}
	return strconv.FormatInt(n, 10)
}
