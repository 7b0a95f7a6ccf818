package data

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ReadJSON reads an array of flat objects. The header is the sorted union of
// all keys; missing keys become blank cells.
func ReadJSON(r io.Reader) (*Table, error) {
	var objs []map[string]any
	if err := json.NewDecoder(r).Decode(&objs); err != nil {
		return nil, fmt.Errorf("decode json rows: %w", err)
	}

	seen := map[string]bool{}
	var header []string
	for _, o := range objs {
		for k := range o {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}
	sort.Strings(header)

	records := make([][]string, 0, len(objs))
	for _, o := range objs {
		rec := make([]string, len(header))
		for i, k := range header {
			rec[i] = cellString(o[k])
		}
		records = append(records, rec)
	}
	return newTable("", header, records), nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
