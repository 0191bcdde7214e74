// Package banner implements the transient status banner shown while
// workflows run. Success messages dismiss after SuccessDelay and error
// messages after ErrorDelay; pending messages stay until replaced.
package banner

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Status is the banner's visual state.
type Status string

const (
	StatusHidden  Status = "hidden"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	DefaultSuccessDelay = 2 * time.Second
	DefaultErrorDelay   = 3 * time.Second
)

// State is a snapshot of the banner.
type State struct {
	Visible bool   `json:"visible"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Banner is safe for concurrent use.
//
// Dismissal timers are not cancelled when a newer message is shown, so a
// timer armed by an earlier message may hide a later one.
type Banner struct {
	mu    sync.Mutex
	state State

	clock        clock.Clock
	successDelay time.Duration
	errorDelay   time.Duration
}

// New creates a hidden banner. Zero delays use the defaults and a nil clock uses the wall clock.
func New(clk clock.Clock, successDelay, errorDelay time.Duration) *Banner {
	if clk == nil {
		clk = clock.New()
	}
	if successDelay <= 0 {
		successDelay = DefaultSuccessDelay
	}
	if errorDelay <= 0 {
		errorDelay = DefaultErrorDelay
	}
	return &Banner{
		state:        State{Status: StatusHidden},
		clock:        clk,
		successDelay: successDelay,
		errorDelay:   errorDelay,
	}
}

// Pending shows message until another message replaces it.
func (b *Banner) Pending(message string) {
	b.show(StatusPending, message)
}

// Success shows message and schedules dismissal.
func (b *Banner) Success(message string) {
	b.show(StatusSuccess, message)
	b.clock.AfterFunc(b.successDelay, b.Hide)
}

// Error shows message and schedules dismissal.
func (b *Banner) Error(message string) {
	b.show(StatusError, message)
	b.clock.AfterFunc(b.errorDelay, b.Hide)
}

// Hide dismisses whatever is shown.
func (b *Banner) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = State{Status: StatusHidden}
}

// State returns the current snapshot.
func (b *Banner) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Banner) show(status Status, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = State{Visible: true, Status: status, Message: message}
}
