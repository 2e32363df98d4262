package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// timestampLayouts are tried in order; the bot writes naive ISO-8601 times.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// decodeObject walks a JSON object in document order. A JSON null is an
// empty object.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read object start: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("read value of %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read object end: %w", err)
	}
	return nil
}

// Timestamp is a leniently decoded point in time. Raw keeps what the bot
// sent; Time is zero when it could not be parsed.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// NewTimestamp wraps a time value.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Raw: t.Format(time.RFC3339Nano)}
}

// IsZero reports whether no usable time was decoded.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero()
}

// UnmarshalJSON accepts ISO-8601 strings, unix seconds or milliseconds, and null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			t.Raw = string(trimmed)
			return nil
		}
		t.Raw = s
		t.Time = parseTimestamp(s)
		return nil
	}

	t.Raw = string(trimmed)
	if f, err := strconv.ParseFloat(t.Raw, 64); err == nil {
		// Values past 1e12 are milliseconds.
		if f > 1e12 {
			t.Time = time.UnixMilli(int64(f))
		} else {
			t.Time = time.Unix(int64(f), 0)
		}
	}
	return nil
}

// MarshalJSON writes the raw form back.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Text decodes any JSON scalar into its textual form.
type Text string

// UnmarshalJSON never fails: strings are unquoted, null is empty, anything
// else keeps its JSON spelling.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || string(trimmed) == "null":
		*t = ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*t = Text(trimmed)
			return nil
		}
		*t = Text(s)
	default:
		*t = Text(trimmed)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}
