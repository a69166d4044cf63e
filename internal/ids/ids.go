package ids

import "github.com/segmentio/ksuid"

// New returns a sortable, opaque identifier.
func New() string {
	return ksuid.New().String()
}

// Valid reports whether s is a well-formed identifier produced by New.
func Valid(s string) bool {
	if len(s) != 27 {
		return false
	}
	_, err := ksuid.Parse(s)
	return err == nil
}
