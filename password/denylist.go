package password

import (
	"context"
	"strings"
)

// Denylist is a BreachChecker backed by an in-memory set of known-compromised
// passwords. Matching is case-insensitive.
type Denylist struct {
	entries map[string]struct{}
}

// NewDenylist builds a Denylist from entries.
func NewDenylist(entries ...string) *Denylist {
	d := &Denylist{entries: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		d.entries[strings.ToLower(e)] = struct{}{}
	}
	return d
}

func (d *Denylist) IsBreached(_ context.Context, password string) (bool, error) {
	_, ok := d.entries[strings.ToLower(password)]
	return ok, nil
}
