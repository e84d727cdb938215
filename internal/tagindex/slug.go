package tagindex

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctRe = regexp.MustCompile("[\\t !\"#$%&'()*\\-/<=>?@\\[\\\\\\]^_`{|},.]+")

// Slugify 生成 URL 安全的标识：小写、去掉变音符号、按标点切分后以 "-" 连接
func Slugify(text string) string {
	folded := fold(strings.ToLower(text))
	words := punctRe.Split(folded, -1)
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, "-")
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName 标签存储名：小写并去掉首尾空白
func NormalizeName(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
