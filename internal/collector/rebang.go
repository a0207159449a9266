package collector

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/lemon8866/hotboard/internal/processor"
)

const (
	rebangBaseURL = "https://api.rebang.today/v1/items"
	rebangOrigin  = "https://rebang.today"

	// 接口偶尔把整页 HTML 当错误页吐回来，限制读取大小
	rebangMaxBody = 2 << 20

	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36"

	// 站方前端自带的公共令牌，生产环境应该用 REBANG_TOKEN 换掉
	defaultAuthToken = "Bearer b4abc833-112a-11f0-8295-3292b700066c"
)

// Client rebang 聚合接口的客户端，一个实例被所有 rebang 源的抓取器共享
type Client struct {
	httpClient *http.Client
	token      string
}

func NewClient(token string, timeout time.Duration) *Client {
	if token == "" {
		token = defaultAuthToken
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		token:      token,
	}
}

// Fetcher 把一张映射表变成一个 rebang 抓取器
func (c *Client) Fetcher(t processor.Table) *RebangFetcher {
	return &RebangFetcher{client: c, table: t}
}

type RebangFetcher struct {
	client *Client
	table  processor.Table
}

func (f *RebangFetcher) Name() string {
	return f.table.Source + "/" + f.table.Category
}

func (f *RebangFetcher) Fetch(ctx context.Context) (*Result, error) {
	t := f.table

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rebangBaseURL, nil)
	if err != nil {
		return nil, &TransportError{Source: f.Name(), Err: err}
	}

	q := req.URL.Query()
	q.Set("tab", t.Tab)
	q.Set("sub_tab", t.SubTab)
	q.Set("page", "1")
	q.Set("version", "1")
	if t.DateType != "" {
		q.Set("date_type", t.DateType)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("accept", "application/json")
	req.Header.Set("accept-language", "zh-CN,zh;q=0.9")
	req.Header.Set("authorization", f.client.token)
	req.Header.Set("origin", rebangOrigin)
	req.Header.Set("referer", rebangOrigin+"/")
	req.Header.Set("user-agent", defaultUserAgent)

	resp, err := f.client.httpClient.Do(req)
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

	env, err := processor.DecodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	return &Result{Envelope: env, Raw: body, FetchedAt: time.Now()}, nil
}
