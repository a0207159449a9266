package processor

import (
	"github.com/lemon8866/hotboard/internal/model"
)

// BuiltinTables 内置源的映射表，字段别名和词表都来自各源的真实返回。
// weibo 和 zhihu 是直连源（Tab 为空），其余都走 rebang 聚合接口。
func BuiltinTables() []Table {
	tables := []Table{
		{
			Source:   "toutiao",
			Category: "hot",
			Tab:      "toutiao",
			SubTab:   "hot",

			KeyAliases:   []string{"item_key"},
			TitleAliases: []string{"title"},
			URLAliases:   []string{"www_url"},
			ScoreAliases: []string{"hot_value"},
			TagAliases:   []string{"label"},
			TagVocab: map[string]model.TagKind{
				"boom":           model.TagBoom,
				"hot":            model.TagHot,
				"new":            model.TagNew,
				"refuteRumors":   model.TagRefute,
				"interpretation": model.TagExplain,
			},
		},
		{
			Source:   "xiaohongshu",
			Category: "hot-search",
			Tab:      "xiaohongshu",
			SubTab:   "hot-search",

			KeyAliases:   []string{"item_key"},
			TitleAliases: []string{"title"},
			URLAliases:   []string{"www_url"},
			ScoreAliases: []string{"view_num"},
			TagAliases:   []string{"tag"},
			TagVocab: map[string]model.TagKind{
				"新":  model.TagNew,
				"热":  model.TagHot,
				"独家": model.TagExclusive,
				"无":  model.TagOrdinary,
			},
		},
		{
			Source:   "juejin",
			Category: "all",
			Tab:      "juejin",
			SubTab:   "all",

			KeyAliases:       []string{"item_key", "id"},
			TitleAliases:     []string{"title"},
			ScoreAliases:     []string{"interact_count", "view"},
			URLTemplate:      "https://juejin.cn/post/%s",
			URLTemplateField: "id",
			IntFields:        []string{"like", "comment_count", "collect", "view"},
			Derived: []DerivedRule{
				{
					Name:    "popularity_index",
					Weights: map[string]float64{"like": 2, "comment_count": 3, "collect": 4},
					Divisor: 100,
				},
			},
		},
		{
			Source:   "thepaper",
			Category: "hot",
			Tab:      "thepaper",
			SubTab:   "hot",

			KeyAliases:   []string{"item_key", "id"},
			TitleAliases: []string{"title"},
			DescAliases:  []string{"desc"},
			ScoreAliases: []string{"comment_num"},
			TimeAliases:  []string{"pub_time"},
			TimeUnit:     UnitSeconds,
		},
		{
			Source:   "tencent-news",
			Category: "hot",
			Tab:      "tencent-news",
			SubTab:   "hot",

			KeyAliases:   []string{"item_key"},
			TitleAliases: []string{"title"},
			URLAliases:   []string{"www_url"},
			DescAliases:  []string{"desc"},
			ScoreAliases: []string{"hot_score"},
			BoolFields:   []string{"is_video"},
			IntFields:    []string{"comment_num", "like_num"},
		},
		{
			Source:   "baidu-tieba",
			Category: "topic",
			Tab:      "baidu-tieba",
			SubTab:   "topic",

			KeyAliases:   []string{"item_key", "id"},
			TitleAliases: []string{"name"},
			DescAliases:  []string{"desc"},
			ScoreAliases: []string{"discuss_num"},
			TagAliases:   []string{"topic_tag"},
			BoolFields:   []string{"is_video_topic"},
		},
		{
			Source:   "xueqiu",
			Category: "topic",
			Tab:      "xueqiu",
			SubTab:   "topic",

			KeyAliases:    []string{"item_key"},
			TitleAliases:  []string{"title"},
			URLAliases:    []string{"www_url"},
			DescAliases:   []string{"desc"},
			ScoreFromText: []string{"reason"},
		},

		// 直连源
		{
			Source:   "weibo",
			Category: "realtime",

			TitleAliases:     []string{"note", "word"},
			ScoreAliases:     []string{"num"},
			TagAliases:       []string{"label_name"},
			URLTemplate:      "https://s.weibo.com/weibo?q=%s",
			URLTemplateField: "word",
			TagVocab: map[string]model.TagKind{
				"新": model.TagNew,
				"热": model.TagHot,
				"爆": model.TagBoom,
				"沸": model.TagBoom,
			},
		},
		{
			Source:   "zhihu",
			Category: "hot",

			KeyAliases:    []string{"question_id"},
			TitleAliases:  []string{"title"},
			URLAliases:    []string{"url"},
			DescAliases:   []string{"excerpt"},
			ScoreFromText: []string{"hot_score"},
		},
	}

	for _, sub := range []string{"today", "weekly", "monthly"} {
		tables = append(tables, Table{
			Source:   "top",
			Category: sub,
			Tab:      "top",
			SubTab:   sub,

			KeyAliases:     []string{"item_key"},
			TitleAliases:   []string{"title"},
			URLAliases:     []string{"link", "mobile_url", "www_url"},
			ScoreAliases:   []string{"hot_value", "heat_num"},
			DisplayAliases: []string{"hot_value_format"},
			BoolFields:     []string{"is_ad"},
		})
	}

	for _, sub := range []string{"realtime", "phrase", "novel"} {
		tables = append(tables, Table{
			Source:   "baidu",
			Category: sub,
			Tab:      "baidu",
			SubTab:   sub,

			KeyAliases:       []string{"item_key"},
			TitleAliases:     []string{"word"},
			DescAliases:      []string{"desc"},
			ScoreAliases:     []string{"hot_score"},
			TagAliases:       []string{"hot_tag"},
			URLTemplate:      "https://www.baidu.com/s?wd=%s",
			URLTemplateField: "query",
		})
	}

	for _, sub := range []string{"popular", "weekly", "rank"} {
		tables = append(tables, Table{
			Source:   "bilibili",
			Category: sub,
			Tab:      "bilibili",
			SubTab:   sub,
			DateType: "now",

			KeyAliases:       []string{"item_key"},
			TitleAliases:     []string{"title"},
			DescAliases:      []string{"describe"},
			ScoreAliases:     []string{"view"},
			URLTemplate:      "https://www.bilibili.com/video/%s",
			URLTemplateField: "bvid",
			IntFields:        []string{"danmaku"},
		})
	}

	for _, sub := range []string{"news", "htd"} {
		tables = append(tables, Table{
			Source:   "ne-news",
			Category: sub,
			Tab:      "ne-news",
			SubTab:   sub,

			KeyAliases:   []string{"item_key"},
			TitleAliases: []string{"title"},
			URLAliases:   []string{"www_url"},
			ScoreAliases: []string{"hot_score"},
			BoolFields:   []string{"is_video"},
			IntFields:    []string{"reply_count"},
		})
	}

	for _, sub := range []string{"news", "notice"} {
		tables = append(tables, Table{
			Source:   "xueqiu",
			Category: sub,
			Tab:      "xueqiu",
			SubTab:   sub,

			KeyAliases:   []string{"item_key"},
			TitleAliases: []string{"title"},
			URLAliases:   []string{"www_url"},
			TimeAliases:  []string{"created_at"},
			TimeUnit:     UnitMillis,
		})
	}

	return tables
}
