package processor

// Registry 按 source/category 管理全部适配器，遍历顺序就是注册顺序
type Registry struct {
	adapters map[string]*Adapter
	order    []string
}

func NewRegistry(tables []Table) *Registry {
	r := &Registry{adapters: make(map[string]*Adapter, len(tables))}
	for _, t := range tables {
		r.Put(t)
	}
	return r
}

// Put 注册或整表覆盖一个源，配置文件里的表优先于内置表
func (r *Registry) Put(t Table) {
	board := t.Source + "/" + t.Category
	if _, ok := r.adapters[board]; !ok {
		r.order = append(r.order, board)
	}
	r.adapters[board] = NewAdapter(t)
}

func (r *Registry) Get(source, category string) (*Adapter, bool) {
	a, ok := r.adapters[source+"/"+category]
	return a, ok
}

func (r *Registry) All() []*Adapter {
	out := make([]*Adapter, 0, len(r.order))
	for _, board := range r.order {
		out = append(out, r.adapters[board])
	}
	return out
}

func (r *Registry) Len() int { return len(r.adapters) }
