// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

/*
Package auth implements local account authentication.

Accounts are created unverified and confirmed with a six digit code sent by
email. Verified accounts log in with email and password and receive two
credentials:

  - a short-lived HS256 access token, presented as "Authorization: Bearer"
  - an opaque refresh token, delivered in an HttpOnly cookie and stored
    server side as a Session keyed by its SHA-256 hash

Refresh tokens are single use: Refresh consumes the presented session and
issues a new one. A password reset revokes every session of the account.

Verification codes and reset tokens are never stored in clear text. Codes
are bcrypt hashed; reset tokens are SHA-256 hashed so they can be looked up.

Session storage is pluggable (MemorySessionStore, BadgerSessionStore).
Account storage is provided by the users package and mail delivery by the
email package; Service wires them together.
*/
package auth
