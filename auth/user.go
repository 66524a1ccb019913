// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth resolves the caller identity of incoming requests.
// Identity is best-effort: Telex forwards a user or channel header when it
// has one, and the remote address is the fallback. The resolved identifier
// keys per-caller rate limiting, so two requests from the same caller must
// resolve to the same identifier.
package auth

import (
	"net"
	"net/http"
	"strings"
)

// Headers consulted for caller identity, in precedence order.
const (
	HeaderTelexUser    = "x-telex-user-id"
	HeaderTelexChannel = "x-telex-channel-id"
	HeaderForwardedFor = "x-forwarded-for"
)

// AnonymousIdentifier is the shared identity for callers that present no
// usable identity at all. All such callers share one rate-limit bucket.
const AnonymousIdentifier = "anonymous"

// User represents the resolved identity of a caller.
type User interface {
	// Identifier returns the stable identity string used as the
	// rate-limit key. Never empty.
	Identifier() string

	// IsAuthenticated reports whether the identity came from a Telex
	// identity header rather than a network-level fallback.
	IsAuthenticated() bool
}

// TelexUser is a caller identified by a Telex identity header.
type TelexUser struct {
	// ID is the user or channel identifier from the header.
	ID string
	// Header is the header the identity came from.
	Header string
}

// Identifier returns the header-provided identity.
func (u TelexUser) Identifier() string {
	return u.ID
}

// IsAuthenticated always returns true for header-identified callers.
func (u TelexUser) IsAuthenticated() bool {
	return true
}

// RemoteUser is a caller identified only by network address.
type RemoteUser struct {
	// Addr is the client IP, from x-forwarded-for or the socket.
	Addr string
}

// Identifier returns the client address.
func (u RemoteUser) Identifier() string {
	return u.Addr
}

// IsAuthenticated always returns false for address-identified callers.
func (u RemoteUser) IsAuthenticated() bool {
	return false
}

// AnonymousUser is a caller with no resolvable identity. This implements
// the Null Object pattern, providing safe defaults without nil checks.
//
// AnonymousUser is safe to use as a zero value and is immutable.
type AnonymousUser struct{}

// Identifier always returns [AnonymousIdentifier].
func (u AnonymousUser) Identifier() string {
	return AnonymousIdentifier
}

// IsAuthenticated always returns false for anonymous callers.
func (u AnonymousUser) IsAuthenticated() bool {
	return false
}

// ResolveUser determines the caller identity for an HTTP request.
//
// Precedence: the x-telex-user-id header, then x-telex-channel-id, then the
// first entry of x-forwarded-for, then the socket's remote address. A request
// with none of these resolves to [AnonymousUser].
func ResolveUser(r *http.Request) User {
	if id := strings.TrimSpace(r.Header.Get(HeaderTelexUser)); id != "" {
		return TelexUser{ID: id, Header: HeaderTelexUser}
	}
	if id := strings.TrimSpace(r.Header.Get(HeaderTelexChannel)); id != "" {
		return TelexUser{ID: id, Header: HeaderTelexChannel}
	}
	if fwd := r.Header.Get(HeaderForwardedFor); fwd != "" {
		// The first entry is the originating client; later entries are
		// proxies appending themselves.
		first, _, _ := strings.Cut(fwd, ",")
		if addr := strings.TrimSpace(first); addr != "" {
			return RemoteUser{Addr: addr}
		}
	}
	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "" {
			return RemoteUser{Addr: host}
		}
	}
	return AnonymousUser{}
}
