package main

import (
	"context"
	"fmt"
	"io"
)

type Policy int

const (
	// PolicyFirstSuccess stops at the first working candidate.
	PolicyFirstSuccess Policy = iota
	// PolicyExhaustive probes every candidate and counts the working ones.
	PolicyExhaustive
)

func (p Policy) String() string {
	switch p {
	case PolicyFirstSuccess:
		return "first"
	case PolicyExhaustive:
		return "all"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

type State int

const (
	StateIdle State = iota
	StateProbing
	StateDoneWithSuccess
	StateDoneExhausted
	StateDoneSummary
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateDoneWithSuccess:
		return "done-with-success"
	case StateDoneExhausted:
		return "done-exhausted"
	case StateDoneSummary:
		return "done-summary"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) Done() bool {
	return s >= StateDoneWithSuccess
}

// Report is the session state of one run.
type Report struct {
	State     State
	Attempted int
	Succeeded int
	Skipped   int
	// Success is the winning probe of a first-success run.
	Success *ProbeResult
	Working []ProxyCandidate
}

type ValidatorOption func(*Validator)

// WithObserver registers a callback run after every probe.
func WithObserver(observer func(ProbeResult)) ValidatorOption {
	return func(v *Validator) {
		v.observers = append(v.observers, observer)
	}
}

// Validator walks a Source one candidate at a time and probes each with the
// configured Prober. It never probes two candidates at once.
type Validator struct {
	prober    Prober
	policy    Policy
	observers []func(ProbeResult)
}

func NewValidator(prober Prober, policy Policy, opts ...ValidatorOption) *Validator {
	v := &Validator{
		prober: prober,
		policy: policy,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run drives the source to a terminal state. Probe failures are recorded and
// never stop the run; a source error stops it and is returned together with
// the report so far.
func (v *Validator) Run(ctx context.Context, src Source) (Report, error) {
	report := Report{State: StateIdle}
	if v.policy != PolicyFirstSuccess && v.policy != PolicyExhaustive {
		return report, fmt.Errorf("unknown validation policy %s", v.policy)
	}

	seen := make(map[ProxyCandidate]bool)

	logInfof("Starting proxy validation with policy %s", v.policy)

	for {
		candidate, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return report, fmt.Errorf("proxy source: %w", err)
		}

		if seen[candidate] {
			report.Skipped++
			logDebugf("Skipping duplicate proxy %s", candidate)
			continue
		}
		seen[candidate] = true

		report.State = StateProbing
		result := v.prober.Probe(ctx, candidate)
		report.Attempted++

		if result.OK {
			report.Succeeded++
			report.Working = append(report.Working, candidate)
			logInfof("Proxy %s is working", candidate)
		} else {
			logWarnf("Proxy %s is not working: %s", candidate, result.Reason)
		}

		for _, observer := range v.observers {
			observer(result)
		}

		if result.OK && v.policy == PolicyFirstSuccess {
			report.State = StateDoneWithSuccess
			report.Success = &result
			logInfof("Stopping after %d probes", report.Attempted)
			return report, nil
		}
	}

	if v.policy == PolicyFirstSuccess {
		report.State = StateDoneExhausted
	} else {
		report.State = StateDoneSummary
	}

	logInfof("Validation finished: %d of %d proxies working", report.Succeeded, report.Attempted)

	return report, nil
}
