package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

const defaultJobTimeout = 10 * time.Second

// Job is one best-effort notification.
type Job struct {
	Kind      Kind
	Recipient string
	Send      func(ctx context.Context) error
}

// Outcome records what happened to a job.
type Outcome struct {
	Kind      Kind
	Recipient string
	Err       error
}

// OK reports whether the job succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Report collects the outcomes of a fan-out, in job order.
type Report struct {
	Outcomes []Outcome
}

// Failed returns the outcomes that carry an error.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Kinds returns the kinds that were delivered.
func (r Report) Kinds() []Kind {
	var out []Kind
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.Kind)
		}
	}
	return out
}

// Sent reports whether a job of kind was delivered.
func (r Report) Sent(kind Kind) bool {
	for _, o := range r.Outcomes {
		if o.Kind == kind && o.Err == nil {
			return true
		}
	}
	return false
}

// OutcomeSummary is the JSON shape of an Outcome.
type OutcomeSummary struct {
	Kind   Kind   `json:"kind"`
	Status string `json:"status"`
}

// Summary renders the report for API responses. Recipients and error text
// stay in the server log.
func (r Report) Summary() []OutcomeSummary {
	out := make([]OutcomeSummary, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		s := OutcomeSummary{Kind: o.Kind, Status: "sent"}
		if o.Err != nil {
			s.Status = "failed"
		}
		out = append(out, s)
	}
	return out
}

// Fanout runs notification jobs after the primary operation has committed.
// Jobs run in order; each gets its own timeout and is detached from the
// caller's cancellation, so a client disconnect does not cut them short.
type Fanout struct {
	timeout time.Duration
	logger  *logging.Logger
}

// NewFanout creates a fan-out runner. A zero timeout uses 10s.
func NewFanout(timeout time.Duration, logger *logging.Logger) *Fanout {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Fanout{timeout: timeout, logger: logger}
}

// Run executes jobs and never fails; errors are captured in the report.
func (f *Fanout) Run(ctx context.Context, jobs []Job) Report {
	report := Report{Outcomes: make([]Outcome, 0, len(jobs))}
	if len(jobs) == 0 {
		return report
	}
	parent := context.WithoutCancel(ctx)
	for _, job := range jobs {
		err := f.runOne(parent, job)
		if err != nil {
			f.logger.Warn("notification failed",
				"kind", job.Kind,
				"to_suffix", messaging.PhoneSuffix(job.Recipient, 4),
				"error", err,
			)
		}
		report.Outcomes = append(report.Outcomes, Outcome{Kind: job.Kind, Recipient: job.Recipient, Err: err})
	}
	return report
}

func (f *Fanout) runOne(parent context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notify: %s panicked: %v", job.Kind, r)
		}
	}()
	if job.Send == nil {
		return fmt.Errorf("notify: %s has no sender", job.Kind)
	}
	ctx, cancel := context.WithTimeout(parent, f.timeout)
	defer cancel()
	return job.Send(ctx)
}
