// Package oracle defines the narrow contract for the external reasoning
// service that selects the next investigative action, plus the HTTP
// backends that implement it.
package oracle

import (
	"context"
	"errors"
	"net/http"
)

// ErrQuotaExceeded marks a rate-limit rejection from the backend. It is
// the only gateway error that triggers a cool-down retry instead of
// being surfaced to the session as a plain error message.
var ErrQuotaExceeded = errors.New("oracle quota exceeded")

// ErrUnavailable is returned when no credential was supplied. The
// analyzer can still be constructed; the first consultation fails.
var ErrUnavailable = errors.New("oracle unavailable: no API key configured")

// ActionType enumerates everything the oracle may ask for. The set is
// closed; anything outside it decodes as ActionUnrecognized.
type ActionType int

const (
	ActionUnrecognized ActionType = iota
	ActionShowRootCause
	ActionFetchFiles
	ActionFetchLogs
	ActionFetchCode
	ActionCommentary
)

func (t ActionType) String() string {
	switch t {
	case ActionShowRootCause:
		return "show_root_cause"
	case ActionFetchFiles:
		return "fetch_files"
	case ActionFetchLogs:
		return "fetch_logs"
	case ActionFetchCode:
		return "fetch_code"
	case ActionCommentary:
		return "commentary"
	default:
		return "unrecognized"
	}
}

// Action is the oracle's chosen next step. Exactly the fields relevant
// to Type are populated; Raw carries the original tool name when the
// type is unrecognized.
type Action struct {
	Type           ActionType
	RootCause      string
	SearchPatterns []string
	PageNumber     int
	Filename       string
	LineNumber     int
	Commentary     string
	Raw            string
}

// FindingSummary is the compact serialization of one finding sent with
// each request.
type FindingSummary struct {
	Type   string `json:"type"`
	Result string `json:"result"`
}

// Request carries the current evidence page, the findings so far, and
// the oracle's own memo from the previous round.
type Request struct {
	Content  string
	Findings []FindingSummary
	Memo     string
}

// Decision is one oracle response. Headers holds the raw response
// headers so the caller can feed quota metadata to the rate limiter.
type Decision struct {
	Action  Action
	Memo    string
	Headers http.Header
}

// Gateway is the single capability the analysis loop consumes.
type Gateway interface {
	Decide(ctx context.Context, req Request) (*Decision, error)
}
