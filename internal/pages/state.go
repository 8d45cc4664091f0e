package pages

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/policyanalytics/dashboard/internal/client"
)

// Status is the load phase of a page.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

const (
	PageDashboard    = "dashboard"
	PagePolicies     = "policies"
	PagePolicyDetail = "policy_detail"
)

// State is the tagged union every page exposes: Data is set only when
// Status is ready, Message only when it is error.
type State[T any] struct {
	Status  Status `json:"status"`
	Data    *T     `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Loading returns a state with no data yet
func Loading[T any]() State[T] {
	return State[T]{Status: StatusLoading}
}

// Ready returns a state holding data
func Ready[T any](data *T) State[T] {
	return State[T]{Status: StatusReady, Data: data}
}

// Failed returns an error state carrying a user-facing message
func Failed[T any](message string) State[T] {
	return State[T]{Status: StatusError, Message: message}
}

// mapState converts the data of a ready state, keeping status and message.
func mapState[T, V any](s State[T], fn func(*T) *V) State[V] {
	out := State[V]{Status: s.Status, Message: s.Message}
	if s.Status == StatusReady && s.Data != nil {
		out.Data = fn(s.Data)
	}
	return out
}

// Recorder observes page loads.
type Recorder interface {
	ObservePageLoad(page, status string, duration time.Duration)
	ReportFailed()
}

type nopRecorder struct{}

func (nopRecorder) ObservePageLoad(string, string, time.Duration) {}
func (nopRecorder) ReportFailed()                                 {}

// Deps are the collaborators shared by every page controller.
type Deps struct {
	API      client.API
	Logger   *zap.Logger
	Recorder Recorder
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	return d
}

// lifecycle tracks whether a controller is still mounted and which load is
// the latest. It has no lock of its own; the owning controller's mutex
// guards it.
type lifecycle struct {
	ctx        context.Context
	cancel     context.CancelFunc
	alive      bool
	generation uint64
	cancelLoad context.CancelFunc
}

func newLifecycle(parent context.Context) lifecycle {
	ctx, cancel := context.WithCancel(parent)
	return lifecycle{ctx: ctx, cancel: cancel, alive: true}
}

// begin starts a new load generation and cancels the one in flight.
func (l *lifecycle) begin() (context.Context, context.CancelFunc, uint64) {
	if l.cancelLoad != nil {
		l.cancelLoad()
	}
	ctx, cancel := context.WithCancel(l.ctx)
	l.cancelLoad = cancel
	l.generation++
	return ctx, cancel, l.generation
}

func (l *lifecycle) current(gen uint64) bool {
	return l.alive && gen == l.generation
}

func (l *lifecycle) started() bool {
	return l.generation > 0
}

func (l *lifecycle) end() {
	l.alive = false
	l.cancel()
}
