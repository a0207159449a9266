package model

import "time"

// TagKind 标签归一化后的类别，各源的原始标签通过映射表落到这个闭集
type TagKind string

const (
	TagNew       TagKind = "new"       // 新上榜
	TagHot       TagKind = "hot"       // 热
	TagBoom      TagKind = "boom"      // 爆 / 沸
	TagExclusive TagKind = "exclusive" // 独家
	TagRefute    TagKind = "refute"    // 辟谣
	TagExplain   TagKind = "explain"   // 解读
	TagOrdinary  TagKind = "ordinary"  // 普通
	TagUnknown   TagKind = "unknown"   // 映射表之外的标签，原文保留在 Tag 里
)

// Item 归一化后的单条热榜条目。
// Score 与 Timestamp 用指针区分"源没给"和"值为 0"，排序时缺失值永远排在最后。
// Extra 保留映射表没认领的原始字段，导出 JSON 时原样带出，CSV 导出时丢弃。
type Item struct {
	Key          string         `json:"key"`
	Title        string         `json:"title"`
	URL          string         `json:"url,omitempty"`
	Score        *int64         `json:"score,omitempty"`
	ScoreDisplay string         `json:"score_display,omitempty"`
	Tag          string         `json:"tag,omitempty"`
	TagKind      TagKind        `json:"tag_kind,omitempty"`
	Timestamp    *int64         `json:"timestamp,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Listing 一次抓取归一化后的完整榜单，构造完成后不再修改。
// Items 的顺序就是榜单名次，第 i 个元素名次为 i+1。
type Listing struct {
	Source          string    `json:"source"`
	Category        string    `json:"category"`
	CurrentPage     int       `json:"current_page"`
	TotalPage       int       `json:"total_page"`
	Items           []Item    `json:"items"`
	LastListTime    int64     `json:"last_list_time,omitempty"`
	NextRefreshTime int64     `json:"next_refresh_time,omitempty"`
	FetchedAt       time.Time `json:"fetched_at"`
	// Seq 由快照层在抓取周期开始时分配，旧周期迟到的结果靠它被丢弃
	Seq uint64 `json:"seq,omitempty"`
}

// Board 返回 source/category 形式的榜单标识，日志和缓存 key 都用它
func (l *Listing) Board() string {
	return l.Source + "/" + l.Category
}
