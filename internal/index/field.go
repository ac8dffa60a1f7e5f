package index

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// field holds a stored Solr field that may be absent, a single string, or a
// multi-valued array; arrays keep their first element.
type field struct {
	value *string
}

func (f *field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		f.value = nil
		return nil
	}

	if len(data) > 0 && data[0] == '[' {
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("multi-valued field: %w", err)
		}
		if len(values) == 0 {
			f.value = nil
			return nil
		}
		f.value = &values[0]
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("string field: %w", err)
	}
	f.value = &s
	return nil
}

// String returns the value or "" when absent.
func (f field) String() string {
	if f.value == nil {
		return ""
	}
	return *f.value
}
