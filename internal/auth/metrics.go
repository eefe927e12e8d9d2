// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package auth

// Outcome labels recorded through Metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeDuplicate   = "duplicate"
	OutcomeError       = "error"
	OutcomeUnknownUser = "unknown_identity"
	OutcomeBadPassword = "bad_password"
)

// loginOutcome labels a rejected login by its reason.
func loginOutcome(reason RejectReason) string {
	if reason == ReasonBadPassword {
		return OutcomeBadPassword
	}
	return OutcomeUnknownUser
}

// Metrics receives auth events. observability.Metrics implements it.
type Metrics interface {
	RecordLogin(outcome string)
	RecordRegistration(outcome string)
	RecordSessionResolution(outcome string)
	RecordSessionsSwept(count int64)
}

type noopMetrics struct{}

func (noopMetrics) RecordLogin(string)             {}
func (noopMetrics) RecordRegistration(string)      {}
func (noopMetrics) RecordSessionResolution(string) {}
func (noopMetrics) RecordSessionsSwept(int64)      {}
