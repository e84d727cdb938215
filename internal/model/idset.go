package model

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IDSet 用户 ID 集合；落库为以空格分隔的文本（votes 列）
type IDSet map[int64]struct{}

func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add 对 nil 集合同样安全
func (s *IDSet) Add(id int64) {
	if *s == nil {
		*s = make(IDSet)
	}
	(*s)[id] = struct{}{}
}

func (s IDSet) Remove(id int64) { delete(s, id) }

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Intersect 遍历较小的集合
func (s IDSet) Intersect(o IDSet) IDSet {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(IDSet, len(small))
	for id := range small {
		if large.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Slice 升序
func (s IDSet) Slice() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s IDSet) String() string {
	ids := s.Slice()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " ")
}

func (IDSet) GormDataType() string { return "text" }

func (s IDSet) Value() (driver.Value, error) { return s.String(), nil }

func (s *IDSet) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = IDSet{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("idset: unsupported scan type %T", src)
	}
	set := IDSet{}
	for _, f := range strings.Fields(raw) {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return fmt.Errorf("idset: %w", err)
		}
		set[id] = struct{}{}
	}
	*s = set
	return nil
}
