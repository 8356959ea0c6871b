package main

import (
	"encoding/json"
	"io"
)

// printJSON 以缩进 JSON 输出结果。
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseValue 把参数解析为 JSON 值，无法解析时按字符串处理。
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
