package refcodec

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ImageField holds an image value exactly as the store returned it: either
// text (JSON array text, comma list, single URL, bare identifier) or an
// already-structured list.
type ImageField struct {
	text   string
	list   []string
	isList bool
}

// TextField wraps a text value.
func TextField(text string) ImageField {
	return ImageField{text: text}
}

// ListField wraps a structured list value.
func ListField(list []string) ImageField {
	return ImageField{list: append([]string(nil), list...), isList: true}
}

// IsList reports whether the store sent a structured list.
func (f ImageField) IsList() bool { return f.isList }

// Text returns the text form; empty for list values.
func (f ImageField) Text() string { return f.text }

// List returns the list form; nil for text values.
func (f ImageField) List() []string { return f.list }

// IsZero reports whether the field carries nothing.
func (f ImageField) IsZero() bool {
	return f.text == "" && len(f.list) == 0
}

// UnmarshalJSON accepts a string, an array, a number or null. Anything else
// is kept as its raw text so decoding can still degrade gracefully.
func (f *ImageField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*f = ImageField{}

	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		f.text = s
		return nil
	case trimmed[0] == '[':
		var values []any
		if err := json.Unmarshal(trimmed, &values); err != nil {
			f.text = string(trimmed)
			return nil
		}
		f.isList = true
		f.list = make([]string, 0, len(values))
		for _, value := range values {
			switch v := value.(type) {
			case string:
				f.list = append(f.list, v)
			case float64:
				f.list = append(f.list, strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		return nil
	default:
		f.text = string(trimmed)
		return nil
	}
}

// MarshalJSON writes the field back in the shape it was read.
func (f ImageField) MarshalJSON() ([]byte, error) {
	if f.isList {
		if f.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(f.list)
	}
	return json.Marshal(f.text)
}
