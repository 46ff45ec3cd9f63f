package realtime

import (
	"encoding/json"
	"sort"
	"strings"
)

// 排序规则与 Postgres jsonb 一致: null < 字符串 < 数字 < false < true < 数组 < 对象,
// 同值按 key 排序. 字符串在内存里按字节比较, Postgres 按数据库排序规则比较.

func typeRank(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return 1
	case float64:
		return 2
	case bool:
		if t {
			return 4
		}
		return 3
	case []any:
		return 5
	default:
		return 6
	}
}

func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	}
	return 0
}

// normalize converts a Go value into the shape json.Unmarshal produces, so
// query bounds compare against stored values of the same type.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func childField(raw json.RawMessage, field string) any {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc[field]
}

// applyQuery filters, orders and limits children the way every backend must.
func applyQuery(children []Child, q Query) []Child {
	type row struct {
		child Child
		value any
	}
	rows := make([]row, 0, len(children))
	eq, start, end := normalize(q.Equal), normalize(q.Start), normalize(q.End)
	for _, c := range children {
		var v any
		if q.OrderBy != "" {
			v = childField(c.Value, q.OrderBy)
		}
		if q.HasEqual() && compareValues(v, eq) != 0 {
			continue
		}
		if q.HasStart() && compareValues(v, start) < 0 {
			continue
		}
		if q.HasEnd() && compareValues(v, end) > 0 {
			continue
		}
		rows = append(rows, row{child: c, value: v})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := compareValues(rows[i].value, rows[j].value); c != 0 {
			return c < 0
		}
		return rows[i].child.Key < rows[j].child.Key
	})

	if q.Last > 0 && len(rows) > q.Last {
		rows = rows[len(rows)-q.Last:]
	}

	out := make([]Child, len(rows))
	for i, r := range rows {
		out[i] = r.child
	}
	return out
}
