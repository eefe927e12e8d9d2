// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package auth implements credential storage, login and session-based
// authorization for Fundhub.
//
// # Domain Types
//
// Identity and Session should be created with NewIdentity and NewSession.
// Direct struct initialization bypasses validation. Repository
// implementations receive pre-validated values from these constructors.
//
// # Services
//
//   - Service registers identities and handles login and logout
//   - SessionManager mints, resolves and revokes session tokens
//   - Authorizer turns a session token into the current caller
//   - Sweeper optionally reclaims expired session rows
//
// Lookups report absence with ErrNotFound. Rejected logins wrap
// *RejectedError, which matches ErrInvalidCredentials; its Reason is for
// audit only.
package auth
