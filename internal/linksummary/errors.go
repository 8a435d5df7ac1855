package linksummary

import "errors"

var (
	ErrFetch   = errors.New("fetch page failed")
	ErrExtract = errors.New("no readable content")
	// ErrBlockedHost rejects loopback, private and link-local destinations.
	ErrBlockedHost = errors.New("destination address not allowed")
)
