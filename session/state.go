package session

import (
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
)

// Status is a state of the session state machine.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusRefreshing     Status = "refreshing"
)

// State is a snapshot of the session. Credentials are read from the token store when the
// snapshot is taken and are nil when nothing is stored.
type State struct {
	Status          Status           `json:"status" yaml:"status"`
	IsAuthenticated bool             `json:"is_authenticated" yaml:"is_authenticated"`
	Credentials     *token.Pair      `json:"-" yaml:"-"`
	Loading         bool             `json:"loading" yaml:"loading"`
	Error           *errors.APIError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Listener is called with a fresh snapshot after every transition.
type Listener func(State)
