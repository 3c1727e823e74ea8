package tz

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// DefaultName is used for events created without a timezone.
const DefaultName = "Europe/Paris"

var cache sync.Map // name -> *time.Location

// Load returns the IANA location for name, or the default for an empty name.
// Loaded locations are cached.
func Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if loc, ok := cache.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	cache.Store(name, loc)
	return loc, nil
}

// In converts t to the location named name, falling back to UTC when the
// name cannot be resolved.
func In(t time.Time, name string) time.Time {
	loc, err := Load(name)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}
