package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gnames/irts/pkg/field"
)

// UnmarshalJSON reads a record from a JSON object, keeping field order.
//
// A field can hold a plain scalar, an object with "value" and optional
// "children", or an array of those:
//
//	{
//	  "dc.title": "Some title",
//	  "dc.contributor.author": [
//	    "Doe, Jane",
//	    {"value": "Roe, Rick", "children": {"dc.identifier.orcid": "0000-0001"}}
//	  ]
//	}
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}
	res, err := decodeRecordBody(dec)
	if err != nil {
		return err
	}
	*r = *res
	return nil
}

// MarshalJSON writes a record as an ordered JSON object. Every field is
// an array, entries without children are plain strings.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.String())
		buf.Write(key)
		buf.WriteString(":[")
		for j, e := range r.Entries(f) {
			if j > 0 {
				buf.WriteByte(',')
			}
			val, err := NormalizeValue(e.Value)
			if err != nil {
				return fmt.Errorf("field %s place %d: %w", f, j, err)
			}
			valJSON, _ := json.Marshal(val)
			if e.Children == nil {
				buf.Write(valJSON)
				continue
			}
			buf.WriteString(`{"value":`)
			buf.Write(valJSON)
			buf.WriteString(`,"children":`)
			if err = e.Children.encode(buf); err != nil {
				return err
			}
			buf.WriteByte('}')
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return nil
}

func decodeRecordBody(dec *json.Decoder) (*Record, error) {
	res := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		f, err := field.Parse(key)
		if err != nil {
			return nil, err
		}
		entries, err := decodeEntries(dec)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f, err)
		}
		res.Set(f, entries...)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return res, nil
}

func decodeEntries(dec *json.Decoder) ([]Entry, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return []Entry{scalarEntry(tok)}, nil
	}
	switch d {
	case '{':
		e, err := decodeEntryBody(dec)
		if err != nil {
			return nil, err
		}
		return []Entry{e}, nil
	case '[':
		var res []Entry
		for dec.More() {
			e, err := decodeEntry(dec)
			if err != nil {
				return nil, err
			}
			res = append(res, e)
		}
		if _, err = dec.Token(); err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("unexpected %v", d)
}

func decodeEntry(dec *json.Decoder) (Entry, error) {
	tok, err := dec.Token()
	if err != nil {
		return Entry{}, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return scalarEntry(tok), nil
	}
	if d != '{' {
		return Entry{}, fmt.Errorf("nested arrays are not supported")
	}
	return decodeEntryBody(dec)
}

func decodeEntryBody(dec *json.Decoder) (Entry, error) {
	var res Entry
	var hasValue bool
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return res, err
		}
		key, _ := tok.(string)
		switch key {
		case "value":
			tok, err = dec.Token()
			if err != nil {
				return res, err
			}
			if _, ok := tok.(json.Delim); ok {
				return res, fmt.Errorf("value must be a scalar")
			}
			res = Entry{Value: scalarEntry(tok).Value, Children: res.Children}
			hasValue = true
		case "children":
			tok, err = dec.Token()
			if err != nil {
				return res, err
			}
			if tok == nil {
				continue
			}
			if d, ok := tok.(json.Delim); !ok || d != '{' {
				return res, fmt.Errorf("children must be an object")
			}
			if res.Children, err = decodeRecordBody(dec); err != nil {
				return res, err
			}
		default:
			return res, fmt.Errorf("unknown entry key %q", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return res, err
	}
	// without a value the entry only holds its place
	if !hasValue {
		return Entry{Value: ""}, nil
	}
	return res, nil
}

// JSON null is an empty value that the engine skips.
func scalarEntry(tok json.Token) Entry {
	if tok == nil {
		return Entry{Value: ""}
	}
	return Entry{Value: tok}
}
