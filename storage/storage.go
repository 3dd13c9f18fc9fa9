// Package storage provides PlanStore implementations. Every store keeps at most one active plan per
// user; archiving flips the status and leaves the plan in place.
package storage

import (
	"time"

	"github.com/google/uuid"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}
