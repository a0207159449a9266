package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/lemon8866/hotboard/internal/processor"
)

// Result 一次抓取的产出：解开的公共信封加原始字节（快照审计用）
type Result struct {
	Envelope  *processor.Envelope
	Raw       []byte
	FetchedAt time.Time
}

// Fetcher 抽象每一个数据源
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (*Result, error)
}

// TransportError 上游请求层面的失败，调度器记日志后等下个周期重试
type TransportError struct {
	Source string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ForTable 为一张映射表挑选抓取器：带 Tab 的走 rebang 聚合接口，
// 直连源按名字分派。认不出的源返回 false，由调用方记日志跳过。
func ForTable(c *Client, t processor.Table, timeout time.Duration) (Fetcher, bool) {
	if t.Tab != "" {
		return c.Fetcher(t), true
	}
	switch t.Source {
	case "weibo":
		return NewWeiboFetcher(timeout), true
	case "zhihu":
		return NewZhihuFetcher(timeout), true
	default:
		return nil, false
	}
}
