package parse

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotList is returned when well-formed JSON is not a list of objects.
var ErrNotList = errors.New("not a list of objects")

// RecordList decodes a nested-collection payload into its raw elements.
// The payload may be a JSON array, or a JSON string holding a serialized
// array (the form layer double-encodes in some code paths).
//
// Malformed JSON yields a *ParseError. Well-formed JSON that is not an array
// of objects yields ErrNotList.
func RecordList(field string, raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &ParseError{Field: field, Err: errors.New("empty payload")}
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, &ParseError{Field: field, Err: err}
		}
		trimmed = bytes.TrimSpace([]byte(inner))
		if len(trimmed) == 0 {
			return nil, &ParseError{Field: field, Err: errors.New("empty payload")}
		}
	}

	if !json.Valid(trimmed) {
		var discard any
		err := json.Unmarshal(trimmed, &discard)
		return nil, &ParseError{Field: field, Err: err}
	}

	if trimmed[0] != '[' {
		return nil, ErrNotList
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, ErrNotList
	}
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			return nil, ErrNotList
		}
	}
	if elems == nil {
		elems = []json.RawMessage{}
	}
	return elems, nil
}

// StringList decodes a serialized JSON list of strings.
func StringList(field, raw string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &ParseError{Field: field, Err: err}
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
