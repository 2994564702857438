package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Helpers for probing untyped JSON decoded into map[string]any. Numbers may arrive as
// float64 or json.Number depending on the decoder.

func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, true
}

func asNumberString(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t)), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case string:
		if t != "" {
			return t, true
		}
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	}
	if f, ok := asFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// pickID is pickString that also accepts numeric identifiers.
func pickID(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := asNumberString(m[k]); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func pickFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := asFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func pickInt(m map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		if n, ok := asInt(m[k]); ok {
			return n, true
		}
	}
	return 0, false
}

func pickBool(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		if b, ok := asBool(m[k]); ok {
			return b, true
		}
	}
	return false, false
}

// imageURL accepts a plain URL or an object carrying one.
func imageURL(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return pickString(t, "url", "src", "image_url")
	}
	return ""
}

func imageList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		if u := imageURL(it); u != "" {
			out = append(out, u)
		}
	}
	return out
}
