package flows

import (
	"context"
	"fmt"
	"strings"
)

const defaultMaxHops = 16

// Steps is the dispatch table. Every field is required.
type Steps struct {
	Dispatch          Step
	Password          Step
	GenerateTOTP      Step
	TOTP              Step
	Recaptcha         Step
	GenerateChallenge Step
	ChallengeResponse Step
	Error             Step
	Authenticated     Step
}

func (s *Steps) lookup(name StepName) (Step, error) {
	var step Step
	switch name {
	case StepDispatch:
		step = s.Dispatch
	case StepPassword:
		step = s.Password
	case StepGenerateTOTP:
		step = s.GenerateTOTP
	case StepTOTP:
		step = s.TOTP
	case StepRecaptcha:
		step = s.Recaptcha
	case StepGenerateChallenge:
		step = s.GenerateChallenge
	case StepChallengeResponse:
		step = s.ChallengeResponse
	case StepError:
		step = s.Error
	case StepAuthenticated:
		step = s.Authenticated
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStep, name)
	}
	if step == nil {
		return nil, fmt.Errorf("%w: no step registered for %s", ErrStepMisconfigured, name)
	}
	return step, nil
}

// Orchestrator drives an Attempt from DISPATCH to a terminal Result.
type Orchestrator struct {
	steps   Steps
	maxHops int
}

// NewOrchestrator validates that every step is registered. maxHops <= 0
// selects the default of 16.
func NewOrchestrator(steps Steps, maxHops int) (*Orchestrator, error) {
	if maxHops <= 0 {
		maxHops = defaultMaxHops
	}
	for name := StepDispatch; name <= StepAuthenticated; name++ {
		if _, err := steps.lookup(name); err != nil {
			return nil, err
		}
	}
	return &Orchestrator{steps: steps, maxHops: maxHops}, nil
}

// Run executes steps until one finishes. A step returning both or neither of
// Next and Done yields ErrStepMisconfigured; exceeding the hop budget yields
// ErrStepLoop.
func (o *Orchestrator) Run(ctx context.Context, a *Attempt) (*Result, error) {
	current := StepDispatch
	a.Previous = StepNone
	path := make([]string, 0, 4)

	for hops := 0; ; hops++ {
		if hops >= o.maxHops {
			return nil, fmt.Errorf("%w: %s", ErrStepLoop, strings.Join(path, "->"))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		step, err := o.steps.lookup(current)
		if err != nil {
			return nil, err
		}
		path = append(path, current.String())

		out, err := step.Process(ctx, a)
		if err != nil {
			return nil, err
		}
		if out.Continue == (out.Done != nil) {
			return nil, fmt.Errorf("%w: %s returned an ambiguous outcome", ErrStepMisconfigured, current)
		}
		if out.Done != nil {
			return out.Done, nil
		}

		a.Previous = current
		current = out.Next
	}
}
