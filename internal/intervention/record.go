// Package intervention models intervention records and renders them into
// Jira wiki markup for issue descriptions.
package intervention

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is the structured input rendered by FormatDescription.
// Empty strings mean the field was absent.
type Record struct {
	ID              string
	Description     string
	ETCMinutes      string
	StepsURL        string
	ImpactSystem    string
	ImpactClient    string
	PRLinks         []string
	AdditionalLinks []string
}

// ParseRecord decodes a JSON object into a Record.
// Only a payload that is not a JSON object is an error; malformed optional
// fields degrade to absent values.
func ParseRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("parse intervention data: %w", err)
	}
	return RecordFromMap(raw), nil
}

// UnmarshalJSON lets a Record be embedded in other JSON documents.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// RecordFromMap builds a Record from a decoded JSON object. It never fails.
func RecordFromMap(m map[string]any) Record {
	return Record{
		ID:              scalar(m["id"]),
		Description:     scalar(m["description"]),
		ETCMinutes:      scalar(m["etc_minutes"]),
		StepsURL:        scalar(m["steps_url"]),
		ImpactSystem:    scalar(m["impact_system"]),
		ImpactClient:    scalar(m["impact_client"]),
		PRLinks:         ParseLinks(m["pr_links"]),
		AdditionalLinks: ParseLinks(m["additional_links"]),
	}
}

// ParseLinks normalizes a link list field into URLs.
//
// Accepted shapes are a list whose elements are URL strings or objects with a
// "url" key, or a JSON-encoded string holding such a list. Elements without a
// URL are skipped; anything unparsable yields nil.
func ParseLinks(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		dec := json.NewDecoder(strings.NewReader(x))
		dec.UseNumber()
		var decoded any
		if err := dec.Decode(&decoded); err != nil {
			return nil
		}
		list, ok := decoded.([]any)
		if !ok {
			return nil
		}
		return linksFromList(list)
	case []any:
		return linksFromList(x)
	case []string:
		var urls []string
		for _, u := range x {
			if u != "" {
				urls = append(urls, u)
			}
		}
		return urls
	default:
		return nil
	}
}

func linksFromList(list []any) []string {
	var urls []string
	for _, item := range list {
		var u string
		switch el := item.(type) {
		case string:
			u = el
		case map[string]any:
			u = scalar(el["url"])
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// scalar renders a decoded JSON scalar as text. Null, false, zero-length
// strings and empty containers read as absent ("").
func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if !x {
			return ""
		}
		return "true"
	case []any:
		if len(x) == 0 {
			return ""
		}
	case map[string]any:
		if len(x) == 0 {
			return ""
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
