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

// Package zcap defines the Authorization Capability data model: the
// capability document, its delegation proof, and the controller set that
// may appear as either a single id or an unordered list of ids on the wire.
package zcap

import (
	"strings"
	"time"
)

// RootIDPrefix is the well-known prefix of a synthesized root capability id.
const RootIDPrefix = "urn:zcap:root:"

// Proof is the delegation signature attached to a non-root capability. It
// names the parent capability chain the signer claims authority over.
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verificationMethod"`
	ProofPurpose       string    `json:"proofPurpose"`
	CapabilityChain    []string  `json:"capabilityChain,omitempty"`
	ProofValue         string    `json:"proofValue,omitempty"`
}

// Capability is a zcap document: a stable id, an invocation target, an
// optional controller, and — for everything but the root — a parent link
// and a delegation proof.
type Capability struct {
	Context          any            `json:"@context,omitempty"`
	ID               string         `json:"id"`
	InvocationTarget string         `json:"invocationTarget"`
	Controller       ControllerSet  `json:"controller,omitempty"`
	ParentCapability string         `json:"parentCapability,omitempty"`
	Expires          *time.Time     `json:"expires,omitempty"`
	AllowedAction    ActionSet      `json:"allowedAction,omitempty"`
	Proof            *Proof         `json:"proof,omitempty"`
}

// IsRoot reports whether c's id has the well-known root capability form.
func (c *Capability) IsRoot() bool {
	return strings.HasPrefix(c.ID, RootIDPrefix)
}

// Validate checks the structural invariants placed on a
// capability document, independent of any cryptographic verification.
func (c *Capability) Validate() error {
	if c.ID == "" {
		return errInvalidCapability("id is required")
	}
	if c.InvocationTarget == "" {
		return errInvalidCapability("invocationTarget is required")
	}
	if !c.IsRoot() {
		if c.ParentCapability == "" {
			return errInvalidCapability("non-root capability requires parentCapability")
		}
		if c.Proof == nil {
			return errInvalidCapability("non-root capability requires a proof")
		}
	}
	return nil
}

// ErrInvalidCapability is returned by Capability.Validate.
type ErrInvalidCapability struct{ Message string }

func (e ErrInvalidCapability) Error() string { return "invalid capability: " + e.Message }

func errInvalidCapability(msg string) error { return ErrInvalidCapability{Message: msg} }

// AllowsAction reports whether the capability's allowed-action set grants
// the given action. An empty AllowedAction set grants every action
// (unattenuated) — "no explicit restriction" means unrestricted, not
// forbidden.
func (c *Capability) AllowsAction(action string) bool {
	return c.AllowedAction.Allows(action)
}
