package docexport

import (
	"fmt"
	"strings"
	"time"
)

// IdlePolicy decides when a loaded page counts as settled: at most
// MaxInflight requests may be outstanding, continuously, for Window.
type IdlePolicy struct {
	Window      time.Duration
	MaxInflight int
}

var (
	// NetworkIdle0 waits for 500 ms without any request in flight.
	NetworkIdle0 = IdlePolicy{Window: 500 * time.Millisecond, MaxInflight: 0}

	// NetworkIdle2 tolerates two long-lived requests, for pages that keep
	// a poll or socket open.
	NetworkIdle2 = IdlePolicy{Window: 500 * time.Millisecond, MaxInflight: 2}
)

// ParseIdlePolicy maps "networkidle0" and "networkidle2" to their policies.
func ParseIdlePolicy(s string) (IdlePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "networkidle0":
		return NetworkIdle0, nil
	case "networkidle2":
		return NetworkIdle2, nil
	}
	return IdlePolicy{}, fmt.Errorf("docexport: %w: unknown idle policy %q", ErrInvalidConfig, s)
}

func (p IdlePolicy) String() string {
	switch p {
	case NetworkIdle0:
		return "networkidle0"
	case NetworkIdle2:
		return "networkidle2"
	}
	return fmt.Sprintf("idle(%s, max %d)", p.Window, p.MaxInflight)
}

func (p IdlePolicy) validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("docexport: %w: idle window must be positive, got %s", ErrInvalidConfig, p.Window)
	}
	if p.MaxInflight < 0 {
		return fmt.Errorf("docexport: %w: idle max in-flight must not be negative, got %d", ErrInvalidConfig, p.MaxInflight)
	}
	return nil
}
