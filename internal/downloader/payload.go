package downloader

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// payloadStrategy pulls a base64 candidate out of the envelope Data field.
type payloadStrategy struct {
	name    string
	extract func(data json.RawMessage) (string, bool)
}

// payloadStrategies are tried in order; the first candidate that decodes wins.
var payloadStrategies = []payloadStrategy{
	{name: "string", extract: stringPayload},
	{name: "buffer", extract: func(data json.RawMessage) (string, bool) {
		return nestedBuffer(data, "buffer")
	}},
	{name: "data.buffer", extract: func(data json.RawMessage) (string, bool) {
		return nestedBuffer(data, "data", "buffer")
	}},
	{name: "raw", extract: rawPayload},
}

// decodePayload returns the decoded bytes and the strategy that produced them.
func decodePayload(data json.RawMessage) ([]byte, string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, "", fmt.Errorf("%w: no data field", ErrDecode)
	}
	var errs []error
	for _, s := range payloadStrategies {
		candidate, ok := s.extract(data)
		if !ok {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		return decoded, s.name, nil
	}
	if len(errs) == 0 {
		return nil, "", fmt.Errorf("%w: unrecognized payload shape", ErrDecode)
	}
	return nil, "", fmt.Errorf("%w: %w", ErrDecode, errors.Join(errs...))
}

func stringPayload(data json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}

func nestedBuffer(data json.RawMessage, path ...string) (string, bool) {
	cur := data
	for _, key := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return "", false
		}
		next, ok := obj[key]
		if !ok {
			return "", false
		}
		cur = next
	}
	return stringPayload(cur)
}

// rawPayload treats the undecoded Data text as the candidate; only useful for
// gateways that emit bare base64 without JSON quoting.
func rawPayload(data json.RawMessage) (string, bool) {
	if len(data) == 0 || data[0] == '"' {
		return "", false
	}
	return string(data), true
}
