package app

import (
	"time"

	"github.com/jmolas/spagate/internal/domain"
)

// Compile-time check: SystemClock implements domain.Clock.
var _ domain.Clock = SystemClock{}

// SystemClock is the production Clock, reading the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
