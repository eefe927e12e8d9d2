// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"fmt"

	"github.com/samber/oops"

	"github.com/fundhub/fundhub/internal/auth"
	"github.com/fundhub/fundhub/internal/store"
)

// dbError wraps a failed statement. Connectivity failures are re-coded
// STORAGE_UNAVAILABLE and wrap auth.ErrStorageUnavailable.
func dbError(code, operation string, err error, kv ...any) error {
	b := oops.Code(code).With("operation", operation).With(kv...)
	if store.IsUnavailable(err) {
		return b.Code("STORAGE_UNAVAILABLE").Wrap(fmt.Errorf("%w: %w", auth.ErrStorageUnavailable, err))
	}
	return b.Wrap(err)
}
