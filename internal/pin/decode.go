package pin

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeRecord builds a Record from one model-emitted JSON object. A field
// with an unexpected JSON type is converted to its text form (or left
// empty when it has none) and its key is returned in coerced.
func DecodeRecord(data []byte) (*Record, []string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, err
	}
	if fields == nil {
		return nil, nil, fmt.Errorf("not a JSON object")
	}

	var (
		r       Record
		coerced []string
	)
	text := func(key string, dst *string) {
		raw, ok := fields[key]
		if !ok {
			return
		}
		value, exact := textValue(raw)
		*dst = value
		if !exact {
			coerced = append(coerced, key)
		}
	}

	text("Title", &r.Title)
	text("Subtitle", &r.Subtitle)
	text("Hook", &r.Hook)
	text("Image Background", &r.ImageBackground)
	text("Description", &r.Description)
	text("Alt Text", &r.AltText)

	if raw, ok := fields["Hashtags"]; ok {
		tags, exact := hashtagsValue(raw)
		r.Hashtags = tags
		if !exact {
			coerced = append(coerced, "Hashtags")
		}
	}

	return &r, coerced, nil
}

func textValue(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch v := v.(type) {
	case nil:
		return "", true
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if t := scalarText(item); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, " "), false
	case float64, bool:
		return strings.TrimSpace(string(raw)), false
	default:
		return "", false
	}
}

func hashtagsValue(raw json.RawMessage) (Hashtags, bool) {
	var h Hashtags
	if err := json.Unmarshal(raw, &h); err == nil {
		return h, true
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	switch v := v.(type) {
	case []any:
		for _, item := range v {
			if t := scalarText(item); t != "" {
				h = append(h, t)
			}
		}
		return h, false
	case float64, bool:
		return Hashtags{strings.TrimSpace(string(raw))}, false
	default:
		return nil, false
	}
}

func scalarText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}
