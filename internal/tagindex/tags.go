package tagindex

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLabelLen 标签 slug 与名称的最大字符数，与 tags 表列宽一致
const MaxLabelLen = 80

// ParseTagList 按逗号拆分，去空白、丢弃空项，保留原始大小写与顺序
func ParseTagList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Label 去重后的待落库标签
type Label struct {
	Slug string
	Name string
}

// Labels 按 slug 去重，顺序为首次出现顺序；slug 为空或超长的标签视为非法
func Labels(raw string) ([]Label, error) {
	list := ParseTagList(raw)
	seen := make(map[string]struct{}, len(list))
	out := make([]Label, 0, len(list))
	for _, t := range list {
		slug := Slugify(t)
		if slug == "" {
			return nil, fmt.Errorf("tag %q has no usable characters", t)
		}
		name := NormalizeName(t)
		if utf8.RuneCountInString(slug) > MaxLabelLen || utf8.RuneCountInString(name) > MaxLabelLen {
			return nil, fmt.Errorf("tag %q is longer than %d characters", t, MaxLabelLen)
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, Label{Slug: slug, Name: name})
	}
	return out, nil
}
