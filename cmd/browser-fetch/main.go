package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
)

type renderRequest struct {
	URL      string `json:"url"`
	Selector string `json:"selector"`
	MaxBytes int    `json:"maxBytes"`
}

type renderResponse struct {
	OK      bool   `json:"ok"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// 渲染型抓取的旁路。部分源对纯 HTTP 客户端上了验证，采集端可以改走这里，
// 拿到真实浏览器渲染后的页面再交给解析层。
func main() {
	// 创建浏览器执行器与顶层上下文，整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/render", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, renderResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, renderResponse{OK: false, Error: "url is required"})
			return
		}
		if req.MaxBytes <= 0 || req.MaxBytes > 4<<20 {
			req.MaxBytes = 512 << 10
		}

		// 每个请求用独立的超时上下文，复用同一个 browserCtx
		ctx, cancel := context.WithTimeout(browserCtx, 20*time.Second)
		defer cancel()

		var content string
		actions := []chromedp.Action{
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		}
		if req.Selector != "" {
			// 指定了选择器就只取该节点文本，比如 script#js-initialData
			actions = append(actions, chromedp.Text(req.Selector, &content, chromedp.ByQuery))
		} else {
			actions = append(actions, chromedp.OuterHTML("html", &content, chromedp.ByQuery))
		}
		if err := chromedp.Run(ctx, actions...); err != nil {
			log.Printf("render error: %v (url=%s)", err, req.URL)
			writeJSON(w, http.StatusOK, renderResponse{OK: false, Error: err.Error()})
			return
		}
		if content == "" {
			writeJSON(w, http.StatusOK, renderResponse{OK: false, Error: "empty content"})
			return
		}

		// 截断到字节上限，同时保证不切坏多字节字符
		if len(content) > req.MaxBytes {
			cut := content[:req.MaxBytes]
			for len(cut) > 0 && !utf8.ValidString(cut) {
				cut = cut[:len(cut)-1]
			}
			content = cut
		}

		writeJSON(w, http.StatusOK, renderResponse{OK: true, Content: content})
	})

	addr := ":" + getEnv("PORT", "4000")
	log.Printf("browser-fetch listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
