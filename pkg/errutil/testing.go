// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package errutil

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

// AssertErrorCode fails t unless err is an oops error whose effective code
// is code. The effective code is the innermost one in the wrap chain.
func AssertErrorCode(t testing.TB, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		t.Fatalf("expected error coded %s, got %T: %v", code, err, err)
		return
	}
	assert.Equal(t, code, oopsErr.Code(), "error: %v", err)
}

// AssertErrorCodeIs asserts the code and that err wraps target, the pairing
// every storage and credential failure in this module carries.
func AssertErrorCodeIs(t testing.TB, err error, code string, target error) {
	t.Helper()
	AssertErrorCode(t, err, code)
	if !errors.Is(err, target) {
		t.Errorf("expected %v to wrap %v", err, target)
	}
}

// AssertErrorContext asserts that err carries key=value in its oops context.
func AssertErrorContext(t testing.TB, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		t.Fatalf("expected oops error with %s in context, got %T: %v", key, err, err)
		return
	}
	ctx := oopsErr.Context()
	if assert.Contains(t, ctx, key) {
		assert.Equal(t, value, ctx[key])
	}
}
