package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray stores string lists as JSON, while tolerating legacy plain-string data.
type StringArray []string

// Clean trims entries, drops blanks and removes duplicates, keeping first-seen order.
func (a StringArray) Clean() StringArray {
	out := make(StringArray, 0, len(a))
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (a StringArray) Value() (driver.Value, error) {
	b, err := json.Marshal([]string(a.Clean()))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(value interface{}) error {
	if a == nil {
		return fmt.Errorf("models.StringArray: Scan on nil pointer")
	}
	if value == nil {
		*a = []string{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("models.StringArray: unsupported Scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		*a = []string{}
		return nil
	}

	var arr []string
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		*a = StringArray(arr).Clean()
		return nil
	}

	// Comma-separated tags from rows written before the JSON encoding.
	*a = StringArray(strings.Split(raw, ",")).Clean()
	return nil
}
