package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/traceback-dev/traceback/internal/oracle"
	"github.com/traceback-dev/traceback/internal/ratelimit"
)

// DefaultMaxIterations caps the analysis loop.
const DefaultMaxIterations = 50

// State is the analyzer's position in its lifecycle. Every terminal
// state is explained through the display callback before Run returns.
type State int

const (
	StateRunning State = iota
	StateRootCause
	StateIterationCap
	StateRepeatedAction
	StateUnrecognizedAction
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateRootCause:
		return "root_cause"
	case StateIterationCap:
		return "iteration_cap"
	case StateRepeatedAction:
		return "repeated_action"
	case StateUnrecognizedAction:
		return "unrecognized_action"
	default:
		return "unknown"
	}
}

// Tools is the local evidence-gathering surface the loop dispatches to.
type Tools interface {
	// SearchFiles returns workspace-relative paths containing any of
	// the plain-text patterns.
	SearchFiles(ctx context.Context, patterns []string) ([]string, error)

	// FetchCode returns a source window around the reported file and
	// line, resolving the path heuristically first.
	FetchCode(filename string, line int) (string, error)
}

// Options tunes one analyzer instance.
type Options struct {
	PageSize      int
	OverlapSize   int
	MaxIterations int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.OverlapSize <= 0 {
		o.OverlapSize = DefaultOverlapSize
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Report is the durable record of one finished session.
type Report struct {
	State      State
	RootCause  string
	Memo       string
	Iterations int
	Findings   []Finding
}

// Analyzer drives the iterative analysis loop: gather evidence, consult
// the oracle, dispatch its chosen action, repeat until a terminal state.
type Analyzer struct {
	gateway oracle.Gateway
	limiter *ratelimit.Limiter
	tools   Tools
	display func(string)
	logger  *slog.Logger
	opts    Options
}

// NewAnalyzer wires a session-ready analyzer. The display callback may
// be nil; when set, it receives human-readable progress narration and is
// never allowed to abort the analysis.
func NewAnalyzer(gateway oracle.Gateway, limiter *ratelimit.Limiter, tools Tools, display func(string), logger *slog.Logger, opts Options) *Analyzer {
	return &Analyzer{
		gateway: gateway,
		limiter: limiter,
		tools:   tools,
		display: display,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

// Run executes the analysis loop over the initial input until a root
// cause is shown or a stop condition fires. The loop is an explicit
// bounded iteration; each oracle call blocks before the next dispatch.
func (a *Analyzer) Run(ctx context.Context, input string) (*Report, error) {
	sess, err := NewContext(input, a.opts.PageSize, a.opts.OverlapSize)
	if err != nil {
		return nil, err
	}

	a.logger.Info("analysis session started", "input_chars", len(input), "total_pages", sess.TotalPages())
	a.say(fmt.Sprintf("Analyzing %d characters of input (%d pages)", len(input), sess.TotalPages()))

	state := StateRunning
	rootCause := ""
	memo := ""

	for state == StateRunning {
		if err := ctx.Err(); err != nil {
			return a.report(sess, state, rootCause, memo), err
		}

		if sess.Iterations() >= a.opts.MaxIterations {
			state = StateIterationCap
			a.say(fmt.Sprintf("Analysis stopped: maximum iterations (%d) reached", a.opts.MaxIterations))
			break
		}
		if repeatsEarlierFinding(sess.Findings()) {
			state = StateRepeatedAction
			a.say("Analysis stopped: the last action repeated an earlier one without new evidence")
			break
		}

		decision, err := a.consult(ctx, sess, memo)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return a.report(sess, state, rootCause, memo), err
			}
			if errors.Is(err, oracle.ErrQuotaExceeded) {
				a.say("Oracle quota exhausted, cooling down before retry")
				if cderr := a.limiter.CoolDown(ctx); cderr != nil {
					return a.report(sess, state, rootCause, memo), cderr
				}
			} else {
				// Non-quota gateway errors are surfaced and the loop
				// continues; the oracle gets a chance to adapt.
				a.logger.Error("oracle consultation failed", "error", err)
				a.say(fmt.Sprintf("Oracle error: %v", err))
			}
			sess.CountIteration()
			continue
		}

		if decision.Memo != "" && decision.Memo != memo {
			memo = decision.Memo
			a.say("Current analysis: " + memo)
		}

		action := decision.Action
		a.logger.Info("dispatching action", "iteration", sess.Iterations(), "action", action.Type.String())

		switch action.Type {
		case oracle.ActionShowRootCause:
			state = StateRootCause
			rootCause = action.RootCause
			a.say("\nRoot cause:\n" + action.RootCause)

		case oracle.ActionFetchFiles:
			a.fetchFiles(ctx, sess, action.SearchPatterns)
			sess.CountIteration()

		case oracle.ActionFetchLogs:
			a.fetchLogs(sess, action.PageNumber)
			sess.CountIteration()

		case oracle.ActionFetchCode:
			a.fetchCode(sess, action.Filename, action.LineNumber)
			sess.CountIteration()

		case oracle.ActionCommentary:
			a.say(action.Commentary)
			sess.CountIteration()

		default:
			state = StateUnrecognizedAction
			a.say(fmt.Sprintf("Analysis stopped: oracle requested unrecognized action %q", action.Raw))
		}
	}

	report := a.report(sess, state, rootCause, memo)
	a.logger.Info("analysis session finished", "state", state.String(), "iterations", report.Iterations, "findings", len(report.Findings))
	return report, nil
}

// consult throttles, then sends the current page, the findings so far,
// and the carried memo. The analyzed-pages summary is injected for this
// call only and never enters the durable findings log.
func (a *Analyzer) consult(ctx context.Context, sess *Context, memo string) (*oracle.Decision, error) {
	if err := a.limiter.Throttle(ctx); err != nil {
		return nil, err
	}

	findings := sess.Findings()
	summaries := make([]oracle.FindingSummary, 0, len(findings)+1)
	for _, f := range findings {
		summaries = append(summaries, oracle.FindingSummary{Type: string(f.Type), Result: f.Result})
	}
	if len(sess.AnalyzedPages()) > 0 {
		transient := sess.AnalyzedPagesSummary()
		summaries = append(summaries, oracle.FindingSummary{Type: string(transient.Type), Result: transient.Context + ": " + transient.Result})
	}

	req := oracle.Request{
		Content:  fmt.Sprintf("Logs page %d of %d:\n%s", sess.PageNumber(), sess.TotalPages(), sess.CurrentPage()),
		Findings: summaries,
		Memo:     memo,
	}

	decision, err := a.gateway.Decide(ctx, req)
	if decision != nil {
		a.limiter.Observe(decision.Headers)
	}
	return decision, err
}

func (a *Analyzer) fetchFiles(ctx context.Context, sess *Context, patterns []string) {
	label := strings.Join(patterns, ", ")
	a.say("Searching workspace for: " + label)

	var result string
	files, err := a.tools.SearchFiles(ctx, patterns)
	switch {
	case err != nil:
		result = fmt.Sprintf("search failed: %v", err)
	case len(files) == 0:
		result = "no files matched"
	default:
		result = fmt.Sprintf("%d files matched:\n%s", len(files), strings.Join(files, "\n"))
	}

	a.say(searchOutcome(files, err))
	sess.AppendFinding(Finding{
		Type:    FindingFetchFiles,
		Context: label,
		Result:  result,
		Tool:    &ToolRef{Type: FindingFetchFiles, Context: label},
	})
}

func (a *Analyzer) fetchLogs(sess *Context, page int) {
	label := fmt.Sprintf("page %d", page)
	tool := &ToolRef{Type: FindingFetchLogs, Context: label}

	if sess.IsPageAnalyzed(page) {
		a.say(fmt.Sprintf("Page %d has already been analyzed, skipping", page))
		sess.AppendFinding(Finding{
			Type:    FindingFetchLogs,
			Context: label,
			Result:  fmt.Sprintf("page %d already analyzed, skipped", page),
			Tool:    tool,
		})
		return
	}

	if !sess.SetPage(page) {
		a.say(fmt.Sprintf("Page %d is out of range (total %d)", page, sess.TotalPages()))
		sess.AppendFinding(Finding{
			Type:    FindingFetchLogs,
			Context: label,
			Result:  fmt.Sprintf("page %d out of range (total %d)", page, sess.TotalPages()),
			Tool:    tool,
		})
		return
	}

	sess.MarkPageAnalyzed(page)
	a.say(fmt.Sprintf("Fetched log page %d of %d", page, sess.TotalPages()))
	sess.AppendFinding(Finding{
		Type:    FindingFetchLogs,
		Context: label,
		Result:  fmt.Sprintf("Logs page %d of %d:\n%s", page, sess.TotalPages(), sess.CurrentPage()),
		Tool:    tool,
	})
}

func (a *Analyzer) fetchCode(sess *Context, filename string, line int) {
	label := fmt.Sprintf("%s:%d", filename, line)
	a.say("Fetching code around " + label)

	var result string
	code, err := a.tools.FetchCode(filename, line)
	if err != nil {
		result = fmt.Sprintf("failed to fetch code: %v", err)
		a.say(result)
	} else {
		result = fmt.Sprintf("Code around %s:\n%s", label, code)
		a.say("Fetched code from " + label)
	}

	sess.AppendFinding(Finding{
		Type:    FindingFetchCode,
		Context: label,
		Result:  result,
		Tool:    &ToolRef{Type: FindingFetchCode, Context: label},
	})
}

// say forwards narration to the display callback. Display failures are
// swallowed: rendering is never allowed to abort an analysis.
func (a *Analyzer) say(message string) {
	if a.display == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("display callback panicked", "panic", r)
		}
	}()
	a.display(message)
}

func (a *Analyzer) report(sess *Context, state State, rootCause, memo string) *Report {
	return &Report{
		State:      state,
		RootCause:  rootCause,
		Memo:       memo,
		Iterations: sess.Iterations(),
		Findings:   sess.Findings(),
	}
}

// repeatsEarlierFinding reports whether the most recent finding is
// structurally identical to any earlier finding in the session.
func repeatsEarlierFinding(findings []Finding) bool {
	if len(findings) < 2 {
		return false
	}
	last := findings[len(findings)-1]
	for _, earlier := range findings[:len(findings)-1] {
		if last.Equal(earlier) {
			return true
		}
	}
	return false
}

func searchOutcome(files []string, err error) string {
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}
	if len(files) == 0 {
		return "No files matched the search patterns"
	}
	return fmt.Sprintf("Found %d matching files", len(files))
}
