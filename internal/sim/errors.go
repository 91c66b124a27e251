package sim

import (
	"errors"

	"antcolony/internal/world"
)

var (
	ErrInvalidConfiguration     = world.ErrInvalidConfiguration
	ErrWorldGenerationExhausted = world.ErrWorldGenerationExhausted
	// ErrPolicyInvocation marks a policy call that failed or returned a
	// malformed action. It is logged and counted, never returned from Step.
	ErrPolicyInvocation = errors.New("policy invocation failure")
)
