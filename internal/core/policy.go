package core

import (
	"math"
	"slices"
)

// InvalidExitCode is the sentinel exit code reported when a process never
// produced a real exit value, for example when launch failed or when an
// asynchronous execution died before the child was waited on. No platform
// produces this value for a real process.
const InvalidExitCode = math.MinInt32

// ExitPolicy is the configured set of exit codes considered successful.
//
// The policy has three distinct states, encoded in the nil-ness of the
// underlying slice:
//
//   - unset (nil slice): every exit code is a success. The caller has
//     explicitly opted out of failure detection.
//   - empty (non-nil, zero length): classification defers to the launch
//     mechanism's platform convention, supplied by the caller as the
//     platformFailure func (typically "non-zero is failure").
//   - non-empty: an exit code is a failure unless it is a member.
//
// The zero value is the unset policy. ExitPolicy values are immutable;
// NewExitPolicy clones its input so later mutation of the caller's slice
// cannot change classification.
type ExitPolicy struct {
	values []int
}

// NewExitPolicy returns a policy accepting exactly the given exit codes.
// A nil slice produces the unset policy; an empty non-nil slice produces
// the defer-to-platform policy.
func NewExitPolicy(values []int) ExitPolicy {
	return ExitPolicy{values: slices.Clone(values)}
}

// IsFailure classifies code against the policy. platformFailure supplies the
// launch mechanism's own success convention and is consulted only when the
// policy is the empty (non-nil) set; it must not be nil in that case.
func (p ExitPolicy) IsFailure(code int, platformFailure func(int) bool) bool {
	switch {
	case p.values == nil:
		return false
	case len(p.values) == 0:
		return platformFailure(code)
	default:
		return !slices.Contains(p.values, code)
	}
}

// Values returns a copy of the accepted exit codes, preserving the
// nil/empty distinction.
func (p ExitPolicy) Values() []int {
	return slices.Clone(p.values)
}
