package processor

import (
	"encoding/json"
	"log"
)

// Envelope 上游返回的公共信封：顶层 code/msg，data 里是榜单元信息和条目列表。
// Records 永远非 nil，空榜单就是长度为 0。
type Envelope struct {
	Code            int
	Msg             string
	SubTab          string
	CurrentPage     int
	TotalPage       int
	LastListTime    int64
	NextRefreshTime int64
	Version         int
	Records         []map[string]any
}

// DecodeError 信封结构坏掉时返回，和"解出来是空榜单"严格分开
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "decode: " + e.Reason + ": " + e.Err.Error()
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrMissingData 顶层没有 data 字段。上游挂了才会这样，要区别于合法的空 list
var ErrMissingData = &DecodeError{Reason: "payload missing data field"}

// DecodeEnvelope 解析上游公共信封。顶层 JSON 坏掉或缺 data 返回 DecodeError；
// data.list 是被二次 JSON 编码的字符串，这里会再解一次，解不开按空榜单处理。
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &DecodeError{Reason: "bad top-level json", Err: err}
	}
	return EnvelopeFromMap(top)
}

// EnvelopeFromMap 给已经是 map 的 payload 用（微博直连、浏览器渲染的改形结果走这里）
func EnvelopeFromMap(top map[string]any) (*Envelope, error) {
	env := &Envelope{Records: []map[string]any{}}
	if n, ok := ResolveInt(top["code"]); ok {
		env.Code = int(n)
	}
	env.Msg = ResolveString(top["msg"])

	dv, ok := top["data"]
	if !ok || dv == nil {
		return nil, ErrMissingData
	}
	data, ok := dv.(map[string]any)
	if !ok {
		return nil, &DecodeError{Reason: "data is not an object"}
	}

	env.SubTab = ResolveString(data["sub_tab"])
	if n, ok := ResolveInt(data["current_page"]); ok {
		env.CurrentPage = int(n)
	}
	if n, ok := ResolveInt(data["total_page"]); ok {
		env.TotalPage = int(n)
	}
	if n, ok := ResolveInt(data["version"]); ok {
		env.Version = int(n)
	}
	if n, ok := ResolveTimestamp(data["last_list_time"], UnitSeconds); ok {
		env.LastListTime = n
	}
	if n, ok := ResolveTimestamp(data["next_refresh_time"], UnitSeconds); ok {
		env.NextRefreshTime = n
	}
	env.Records = decodeRecords(data)
	return env, nil
}

// decodeRecords 取 data.list（或 data.items）。字符串形态先做二次解码，
// 数组里不是对象的元素直接丢掉。
func decodeRecords(data map[string]any) []map[string]any {
	v, ok := ResolveFirst(data, []string{"list", "items"})
	if !ok {
		return []map[string]any{}
	}

	var arr []any
	switch lv := v.(type) {
	case string:
		if err := json.Unmarshal([]byte(lv), &arr); err != nil {
			log.Printf("decode embedded list error: %v", err)
			return []map[string]any{}
		}
	case []any:
		arr = lv
	default:
		return []map[string]any{}
	}

	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
