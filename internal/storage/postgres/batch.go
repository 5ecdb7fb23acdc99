package postgres

import (
	"encoding/json"
	"strconv"
	"strings"
)

// writeValues appends "($1, $2), ($3, $4)" style placeholder groups.
func writeValues(sb *strings.Builder, rows, cols int) {
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(r*cols + c + 1))
		}
		sb.WriteString(")")
	}
}

// jsonArg encodes a JSONB parameter. A nil map is stored as NULL.
func jsonArg(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonMap(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
