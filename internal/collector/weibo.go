package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/lemon8866/hotboard/internal/processor"
)

const weiboHotURL = "https://weibo.com/ajax/side/hotSearch"

// WeiboFetcher 直连微博侧边栏热搜接口，不走 rebang
type WeiboFetcher struct {
	httpClient *http.Client
}

func NewWeiboFetcher(timeout time.Duration) *WeiboFetcher {
	return &WeiboFetcher{httpClient: &http.Client{Timeout: timeout}}
}

func (f *WeiboFetcher) Name() string { return "weibo/realtime" }

func (f *WeiboFetcher) Fetch(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, weiboHotURL, nil)
	if err != nil {
		return nil, &TransportError{Source: f.Name(), Err: err}
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", defaultUserAgent)
	req.Header.Set("referer", "https://weibo.com/hot/search")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Source: f.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Source: f.Name(), Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, rebangMaxBody))
	if err != nil {
		return nil, &TransportError{Source: f.Name(), Err: err}
	}

	env, err := reshapeWeibo(body)
	if err != nil {
		return nil, err
	}
	return &Result{Envelope: env, Raw: body, FetchedAt: time.Now()}, nil
}

// reshapeWeibo 把微博的返回改形成公共信封：data.realtime 就是条目列表。
// 微博的 payload 不带分页和刷新提示，信封里这些字段保持零值。
func reshapeWeibo(body []byte) (*processor.Envelope, error) {
	var top map[string]any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, &processor.DecodeError{Reason: "weibo payload", Err: err}
	}

	shaped := map[string]any{"code": top["ok"]}
	if data, ok := top["data"].(map[string]any); ok {
		shaped["data"] = map[string]any{"items": data["realtime"]}
	}
	return processor.EnvelopeFromMap(shaped)
}
