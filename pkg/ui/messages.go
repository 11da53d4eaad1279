// Package ui provides the Bubble Tea TUI for the pricing-aggregation core.
package ui

import (
	"time"

	routingdomain "github.com/kbaldwin/dexquote/business/routing/domain"
)

// Message types for TUI updates

// RateMsg is sent with one route optimizer pipeline result: the full
// envelope set for a (from, to, side) query, after every configured
// transform has run.
type RateMsg struct {
	Rate routingdomain.UnoptimizedRate
}

// AdapterStatusMsg is sent when an adapter's lifecycle state changes.
type AdapterStatusMsg struct {
	Key         string
	Initialized bool
	Err         string
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// GasPriceMsg is sent when gas price is updated.
type GasPriceMsg struct {
	GweiPrice float64
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// WelcomeCompleteMsg signals the welcome screen is done (timeout or keypress).
type WelcomeCompleteMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}
