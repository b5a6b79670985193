package core

import "strings"

// Book 是书目属性记录（目录侧静态信息，区别于 ItemMetrics 的统计信息）。
//
// Authors 在仓储边界一次性解析为有序列表，下游不再做字符串切分；
// 第一作者（PrimaryAuthor）是多样性约束的分桶键。
type Book struct {
	ISBN      string
	Title     string
	Authors   []string
	Publisher string
	Year      int
	Genres    []string
	Price     float64
}

// PrimaryAuthor 返回第一作者；无作者时返回空串。
func (b *Book) PrimaryAuthor() string {
	if b == nil || len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// HasGenre 检查书目是否属于某个类型（大小写不敏感）。
func (b *Book) HasGenre(genre string) bool {
	if b == nil {
		return false
	}
	for _, g := range b.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// HasAuthor 检查书目是否包含某位作者（大小写不敏感）。
func (b *Book) HasAuthor(author string) bool {
	if b == nil {
		return false
	}
	for _, a := range b.Authors {
		if strings.EqualFold(a, author) {
			return true
		}
	}
	return false
}

// ParseAuthors 把逗号/分号分隔的作者串解析为有序列表，在仓储边界调用一次。
// 空白项会被丢弃。
func ParseAuthors(raw string) []string {
	if raw == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if name := strings.TrimSpace(f); name != "" {
			out = append(out, name)
		}
	}
	return out
}
