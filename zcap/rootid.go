// Copyright (C) 2026 zcap-authz-go contributors
//
// This file is part of zcap-authz-go.
//
// zcap-authz-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// zcap-authz-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with zcap-authz-go.  If not, see <https://www.gnu.org/licenses/>.

package zcap

import (
	"fmt"
	"net/url"
	"strings"
)

// RootCapabilityID computes the well-known root capability id for an
// invocation target: "urn:zcap:root:" + percent-encoded target
//. Encoding and decoding must be an exact pair so id
// comparisons remain byte-exact.
func RootCapabilityID(invocationTarget string) string {
	return RootIDPrefix + url.QueryEscape(invocationTarget)
}

// ParseRootCapabilityID reverses RootCapabilityID. ok is false if id does
// not have the well-known root form or its suffix fails to percent-decode.
func ParseRootCapabilityID(id string) (invocationTarget string, ok bool) {
	suffix, found := strings.CutPrefix(id, RootIDPrefix)
	if !found {
		return "", false
	}
	target, err := url.QueryUnescape(suffix)
	if err != nil {
		return "", false
	}
	return target, true
}

// IsRootCapabilityID reports whether id has the well-known root form.
func IsRootCapabilityID(id string) bool {
	return strings.HasPrefix(id, RootIDPrefix)
}

// NewRootCapability synthesizes the root capability document for an
// invocation target and controller. It is never persisted;
// its lifetime is a single verification pass.
func NewRootCapability(invocationTarget string, controller ControllerSet) *Capability {
	return &Capability{
		Context:          "https://w3id.org/zcap/v1",
		ID:               RootCapabilityID(invocationTarget),
		InvocationTarget: invocationTarget,
		Controller:       controller,
	}
}

// ValidateAbsoluteURI checks that s parses as an absolute URI, the invariant
// placed on rootInvocationTarget and target.
func ValidateAbsoluteURI(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URI %q: %w", s, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("URI %q must be absolute", s)
	}
	return nil
}

// IsAttenuatedFrom reports whether target is parent itself, or a
// path-segment-boundary-safe attenuation of it: parent followed by a "/"
// and more path. A bare strings.HasPrefix would wrongly treat
// "https://x/documents" as a prefix of the unrelated sibling
// "https://x/documentsSecret"; this requires the next byte after parent to
// be a segment separator.
func IsAttenuatedFrom(target, parent string) bool {
	if target == parent {
		return true
	}
	return strings.HasPrefix(target, parent+"/")
}
