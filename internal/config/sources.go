package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lemon8866/hotboard/internal/model"
	"github.com/lemon8866/hotboard/internal/processor"
	"gopkg.in/yaml.v3"
)

// SourceEntry 是配置文件里的一个榜单声明，字段与内置映射表一一对应。
// 注册表里已有同名榜单时按字段覆盖内置表，否则整表注册为新源。
type SourceEntry struct {
	Source   string `yaml:"source"`
	Category string `yaml:"category"`

	Tab      string `yaml:"tab"`
	SubTab   string `yaml:"sub_tab"`
	DateType string `yaml:"date_type"`

	KeyAliases     []string `yaml:"key_aliases"`
	TitleAliases   []string `yaml:"title_aliases"`
	URLAliases     []string `yaml:"url_aliases"`
	ScoreAliases   []string `yaml:"score_aliases"`
	DisplayAliases []string `yaml:"display_aliases"`
	DescAliases    []string `yaml:"desc_aliases"`
	TagAliases     []string `yaml:"tag_aliases"`
	TimeAliases    []string `yaml:"time_aliases"`
	TimeUnit       string   `yaml:"time_unit"` // seconds(默认) / millis

	TagVocab map[string]string `yaml:"tag_vocab"`

	URLBase          string `yaml:"url_base"`
	URLTemplate      string `yaml:"url_template"`
	URLTemplateField string `yaml:"url_template_field"`

	ScoreSuffixes map[string]float64 `yaml:"score_suffixes"`
	ScoreFromText []string           `yaml:"score_from_text"`

	BoolFields []string `yaml:"bool_fields"`
	IntFields  []string `yaml:"int_fields"`

	Derived []DerivedEntry `yaml:"derived"`

	Interval int `yaml:"interval"` // 秒
	Jitter   int `yaml:"jitter"`   // 秒
}

type DerivedEntry struct {
	Name    string             `yaml:"name"`
	Weights map[string]float64 `yaml:"weights"`
	Divisor float64            `yaml:"divisor"`
}

type sourcesFile struct {
	Sources []SourceEntry `yaml:"sources"`
}

// validTagKinds 配置里允许写的归一化标签类别
var validTagKinds = map[string]model.TagKind{
	"new":       model.TagNew,
	"hot":       model.TagHot,
	"boom":      model.TagBoom,
	"exclusive": model.TagExclusive,
	"refute":    model.TagRefute,
	"explain":   model.TagExplain,
	"ordinary":  model.TagOrdinary,
	"unknown":   model.TagUnknown,
}

// LoadSources 读取 SOURCES_FILE 并把其中的榜单声明合并进注册表。
// path 为空直接返回。文件读不到或内容非法时返回错误，启动方应视为致命。
func LoadSources(path string, reg *processor.Registry) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse sources file: %w", err)
	}

	for i, e := range f.Sources {
		if err := validateEntry(e); err != nil {
			return fmt.Errorf("sources file entry %d: %w", i, err)
		}
		base := processor.Table{}
		if a, ok := reg.Get(e.Source, e.Category); ok {
			base = a.Table()
		}
		t, err := overlayTable(base, e)
		if err != nil {
			return fmt.Errorf("sources file entry %d (%s/%s): %w", i, e.Source, e.Category, err)
		}
		reg.Put(t)
	}

	log.Printf("sources file %s: %d entries merged", path, len(f.Sources))
	return nil
}

func validateEntry(e SourceEntry) error {
	if e.Source == "" || e.Category == "" {
		return fmt.Errorf("source and category are required")
	}
	if e.Interval < 0 || e.Jitter < 0 {
		return fmt.Errorf("interval and jitter must be non-negative")
	}
	if e.URLTemplate != "" && e.URLTemplateField == "" {
		return fmt.Errorf("url_template requires url_template_field")
	}
	return nil
}

// overlayTable 把配置项里写到的字段盖在基表上，没写的保持原样
func overlayTable(base processor.Table, e SourceEntry) (processor.Table, error) {
	t := base
	t.Source = e.Source
	t.Category = e.Category

	if e.Tab != "" {
		t.Tab = e.Tab
	}
	if e.SubTab != "" {
		t.SubTab = e.SubTab
	}
	if e.DateType != "" {
		t.DateType = e.DateType
	}

	if len(e.KeyAliases) > 0 {
		t.KeyAliases = e.KeyAliases
	}
	if len(e.TitleAliases) > 0 {
		t.TitleAliases = e.TitleAliases
	}
	if len(e.URLAliases) > 0 {
		t.URLAliases = e.URLAliases
	}
	if len(e.ScoreAliases) > 0 {
		t.ScoreAliases = e.ScoreAliases
	}
	if len(e.DisplayAliases) > 0 {
		t.DisplayAliases = e.DisplayAliases
	}
	if len(e.DescAliases) > 0 {
		t.DescAliases = e.DescAliases
	}
	if len(e.TagAliases) > 0 {
		t.TagAliases = e.TagAliases
	}
	if len(e.TimeAliases) > 0 {
		t.TimeAliases = e.TimeAliases
	}

	switch e.TimeUnit {
	case "":
	case "seconds":
		t.TimeUnit = processor.UnitSeconds
	case "millis":
		t.TimeUnit = processor.UnitMillis
	default:
		return t, fmt.Errorf("unknown time_unit %q", e.TimeUnit)
	}

	if len(e.TagVocab) > 0 {
		vocab := make(map[string]model.TagKind, len(e.TagVocab))
		for raw, kind := range e.TagVocab {
			k, ok := validTagKinds[kind]
			if !ok {
				return t, fmt.Errorf("unknown tag kind %q for %q", kind, raw)
			}
			vocab[raw] = k
		}
		t.TagVocab = vocab
	}

	if e.URLBase != "" {
		t.URLBase = e.URLBase
	}
	if e.URLTemplate != "" {
		t.URLTemplate = e.URLTemplate
		t.URLTemplateField = e.URLTemplateField
	}

	if len(e.ScoreSuffixes) > 0 {
		t.ScoreSuffixes = e.ScoreSuffixes
	}
	if len(e.ScoreFromText) > 0 {
		t.ScoreFromText = e.ScoreFromText
	}
	if len(e.BoolFields) > 0 {
		t.BoolFields = e.BoolFields
	}
	if len(e.IntFields) > 0 {
		t.IntFields = e.IntFields
	}

	if len(e.Derived) > 0 {
		rules := make([]processor.DerivedRule, 0, len(e.Derived))
		for _, d := range e.Derived {
			if d.Name == "" || len(d.Weights) == 0 {
				return t, fmt.Errorf("derived rule needs name and weights")
			}
			rules = append(rules, processor.DerivedRule{Name: d.Name, Weights: d.Weights, Divisor: d.Divisor})
		}
		t.Derived = rules
	}

	if e.Interval > 0 {
		t.Interval = time.Duration(e.Interval) * time.Second
	}
	if e.Jitter > 0 {
		t.Jitter = time.Duration(e.Jitter) * time.Second
	}

	return t, nil
}
