package collector

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/lemon8866/hotboard/internal/processor"
)

const zhihuHotURL = "https://www.zhihu.com/hot"

// ZhihuFetcher 抓知乎热榜页。首选页面里 js-initialData 脚本内嵌的 JSON 状态，
// 脚本结构变了就退回 DOM 解析，尽力而为。
type ZhihuFetcher struct {
	timeout time.Duration
}

func NewZhihuFetcher(timeout time.Duration) *ZhihuFetcher {
	return &ZhihuFetcher{timeout: timeout}
}

func (f *ZhihuFetcher) Name() string { return "zhihu/hot" }

func (f *ZhihuFetcher) Fetch(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Source: f.Name(), Err: err}
	}

	c := colly.NewCollector(
		colly.AllowedDomains("www.zhihu.com"),
		colly.UserAgent(defaultUserAgent),
	)
	c.SetRequestTimeout(f.timeout)

	var initData []byte
	var domRecords []map[string]any

	c.OnHTML("script#js-initialData", func(e *colly.HTMLElement) {
		initData = []byte(e.Text)
	})
	c.OnHTML("section.HotItem", func(e *colly.HTMLElement) {
		if rec := zhihuRecordFromDOM(e.DOM); rec != nil {
			domRecords = append(domRecords, rec)
		}
	})

	if err := c.Visit(zhihuHotURL); err != nil {
		return nil, &TransportError{Source: f.Name(), Err: err}
	}

	records, err := flattenZhihuHot(initData)
	if err != nil || len(records) == 0 {
		records = domRecords
	}

	env, envErr := processor.EnvelopeFromMap(map[string]any{
		"data": map[string]any{"items": anySlice(records)},
	})
	if envErr != nil {
		return nil, envErr
	}
	return &Result{Envelope: env, Raw: initData, FetchedAt: time.Now()}, nil
}

// flattenZhihuHot 从 js-initialData 的 JSON 里取 initialState.topstory.hotList，
// 把嵌套的 target 结构拍平成一层记录
func flattenZhihuHot(initData []byte) ([]map[string]any, error) {
	if len(initData) == 0 {
		return nil, &processor.DecodeError{Reason: "zhihu initial data missing"}
	}

	var root map[string]any
	if err := json.Unmarshal(initData, &root); err != nil {
		return nil, &processor.DecodeError{Reason: "zhihu initial data", Err: err}
	}

	hotList, ok := dig(root, "initialState", "topstory", "hotList").([]any)
	if !ok {
		return nil, &processor.DecodeError{Reason: "zhihu hotList missing"}
	}

	records := make([]map[string]any, 0, len(hotList))
	for _, raw := range hotList {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		target, ok := entry["target"].(map[string]any)
		if !ok {
			continue
		}

		url, _ := dig(target, "link", "url").(string)
		rec := map[string]any{
			"title":       digText(target, "titleArea"),
			"url":         url,
			"hot_score":   digText(target, "metricsArea"),
			"excerpt":     digText(target, "excerptArea"),
			"question_id": questionIDFromURL(url),
		}
		records = append(records, rec)
	}
	return records, nil
}

// zhihuRecordFromDOM 退化路径：直接从热榜条目的 DOM 结构里抠字段
func zhihuRecordFromDOM(s *goquery.Selection) map[string]any {
	title := strings.TrimSpace(s.Find("h2.HotItem-title").Text())
	if title == "" {
		return nil
	}
	url, _ := s.Find("a").First().Attr("href")
	return map[string]any{
		"title":       title,
		"url":         url,
		"hot_score":   strings.TrimSpace(s.Find("div.HotItem-metrics").Text()),
		"excerpt":     strings.TrimSpace(s.Find("p.HotItem-excerpt").Text()),
		"question_id": questionIDFromURL(url),
	}
}

func questionIDFromURL(url string) string {
	if url == "" {
		return ""
	}
	if i := strings.Index(url, "question/"); i != -1 {
		id := url[i+len("question/"):]
		if j := strings.IndexByte(id, '/'); j != -1 {
			id = id[:j]
		}
		return id
	}
	if i := strings.LastIndexByte(url, '/'); i != -1 {
		return url[i+1:]
	}
	return ""
}

func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[p]
	}
	return cur
}

func digText(m map[string]any, key string) string {
	t, _ := dig(m, key, "text").(string)
	return t
}

func anySlice(records []map[string]any) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
