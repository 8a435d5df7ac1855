package media

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidDataURI is returned by ParseDataURI for anything but a base64 data URI.
var ErrInvalidDataURI = errors.New("invalid data uri")

// DataURI renders data as "data:<mime>;base64,<payload>".
func DataURI(mime string, data []byte) string {
	if strings.TrimSpace(mime) == "" {
		mime = DefaultMime
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// ParseDataURI splits a base64 data URI back into its MIME type and bytes.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrInvalidDataURI, err)
	}
	return mime, data, nil
}
