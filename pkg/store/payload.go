package store

import (
	"bytes"
	"encoding/json"

	"github.com/gnames/gnuuid"
)

// Canonical returns the form of a payload used for comparison. JSON
// payloads are re-encoded so that key order and whitespace do not matter,
// other payloads are compared byte for byte.
func Canonical(data []byte, format Format) []byte {
	if format != FormatJSON {
		return data
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return data
	}
	res, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return res
}

// PayloadHash returns UUIDv5 of the canonical payload. It is stored next
// to the payload to skip byte comparison of unrelated versions.
func PayloadHash(data []byte, format Format) string {
	return gnuuid.New(string(Canonical(data, format))).String()
}

// SamePayload reports whether two payloads carry the same content.
func SamePayload(a, b []byte, format Format) bool {
	return bytes.Equal(Canonical(a, format), Canonical(b, format))
}
