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

// Package delegation walks a capability's parentCapability chain back to
// its root, verifying each delegation proof and collecting the transitive
// controller set along the way. The walk is the core the invocation
// verifier reuses for the invoked capability's own chain, and that the
// revocation verifier reuses to collect the chain's transitive controller
// set.
package delegation

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcap"
	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// Suite verifies a single capability's delegation proof. Suite
// implementations — the cryptographic and DID-resolution machinery — are
// supplied by the host; this package only orchestrates the walk.
type Suite interface {
	VerifyCapabilityProof(ctx context.Context, capability *zcap.Capability, loader rootcap.DocumentLoader) (bool, error)
}

// SuiteFactory returns the suite(s) usable to verify delegation proofs
// found while walking a chain for req. Taking req lets a host vary which
// suites are acceptable per request — e.g. a different set of DID methods
// per tenant. Multiple suites may be returned when more than one proof type
// is acceptable; a proof is accepted if any suite verifies it.
type SuiteFactory func(req *http.Request) ([]Suite, error)

// InspectCapabilityChain is the optional host hook named
// "inspectCapabilityChain": given the ordered chain of capability ids
// (root-to-leaf), it may veto an otherwise-valid chain (revocation checks,
// deny lists, etc).
type InspectCapabilityChain func(capabilityChain []string) (valid bool, err error)

// DefaultMaxChainLength, DefaultMaxDelegationTTL and DefaultMaxClockSkew are
// the defaults applied for a zero Policy: 10 capabilities in a chain (root
// included), 90 days, 300 seconds.
const (
	DefaultMaxChainLength   = 10
	DefaultMaxDelegationTTL = 90 * 24 * time.Hour
	DefaultMaxClockSkew     = 300 * time.Second
)

// Policy bounds a chain walk: the maximum number of capabilities in the
// chain, root and leaf included, the maximum lifetime a single delegation proof may claim
// between its created and expires timestamps, the tolerated clock skew
// between the verifier's clock and any timestamp in the chain, and whether
// a child's invocationTarget may be a path-prefixed attenuation of its
// parent's rather than an exact match.
type Policy struct {
	MaxChainLength         int
	MaxDelegationTTL       time.Duration
	MaxClockSkew           time.Duration
	AllowTargetAttenuation bool
	Now                    time.Time
}

// withDefaults fills zero-valued fields with the package defaults and pins
// Now to a single sample if the caller did not supply one, so every check
// in one walk uses the same monotonic reading.
func (p Policy) withDefaults(now time.Time) Policy {
	if p.MaxChainLength == 0 {
		p.MaxChainLength = DefaultMaxChainLength
	}
	if p.MaxDelegationTTL == 0 {
		p.MaxDelegationTTL = DefaultMaxDelegationTTL
	}
	if p.MaxClockSkew == 0 {
		p.MaxClockSkew = DefaultMaxClockSkew
	}
	if p.Now.IsZero() {
		p.Now = now
	}
	return p
}

// ControllerFromVerificationMethod returns the controller identity implied
// by a verification method id, taking everything before a "#" fragment
// (the convention DID-based verification methods use to name the key's
// owning document).
func ControllerFromVerificationMethod(verificationMethod string) string {
	if i := strings.IndexByte(verificationMethod, '#'); i >= 0 {
		return verificationMethod[:i]
	}
	return verificationMethod
}

// Result is the revocation context: the delegator (the last
// signer in the chain), the ordered chain of dereferenced capabilities
// root-to-leaf, and the transitive union of every controller appearing in
// the chain.
type Result struct {
	Delegator        string
	Chain            []*zcap.Capability
	ChainControllers zcap.ControllerSet
}

// Verify walks leaf's parentCapability chain back to its root with
// WalkChain and collects the chain's controllers. Roots cannot themselves be delegated (there is nothing to
// walk) and are rejected with zcaperr.KindRootNotRevocable, matching the
// revocation pipeline's rule that a root capability cannot be revoked.
// Any structural, cryptographic, cycle, length, or TTL failure surfaces as
// zcaperr.KindInvalidDelegation.
func Verify(ctx context.Context, leaf *zcap.Capability, loader rootcap.DocumentLoader, suites []Suite, policy Policy, inspect InspectCapabilityChain) (*Result, error) {
	if leaf.IsRoot() {
		return nil, zcaperr.New(zcaperr.KindRootNotRevocable, "A root capability cannot be revoked.")
	}

	chain, err := WalkChain(ctx, leaf, loader, suites, policy)
	if err != nil {
		return nil, err
	}

	if inspect != nil {
		ids := make([]string, len(chain))
		for i, c := range chain {
			ids[i] = c.ID
		}
		valid, err := inspect(ids)
		if err != nil {
			return nil, zcaperr.Wrap(zcaperr.KindInvalidDelegation, "The provided capability delegation is invalid.", err)
		}
		if !valid {
			return nil, zcaperr.New(zcaperr.KindInvalidDelegation, "The provided capability delegation is invalid.")
		}
	}

	controllers := zcap.NewControllerSet()
	for _, c := range chain {
		controllers = controllers.Union(c.Controller)
	}

	delegator := leaf.ID
	if leaf.Proof != nil && leaf.Proof.VerificationMethod != "" {
		delegator = leaf.Proof.VerificationMethod
	}

	return &Result{
		Delegator:        delegator,
		Chain:            chain,
		ChainControllers: controllers,
	}, nil
}

// WalkChain dereferences and verifies each capability from leaf back to its
// root, returning the chain in root-to-leaf order. It checks each link's
// delegation proof, controller match, target attenuation, chain length,
// TTL, and clock skew, but does not check the root identifier against a
// caller's expected roots — that depends on the caller's expected values
// and so is left to the caller. If leaf is itself a root, the returned
// chain is the single-element [leaf] and no per-link checks run. Cycles are
// detected by id.
func WalkChain(ctx context.Context, leaf *zcap.Capability, loader rootcap.DocumentLoader, suites []Suite, policy Policy) ([]*zcap.Capability, error) {
	policy = policy.withDefaults(time.Now())
	seen := make(map[string]bool)
	var reverseChain []*zcap.Capability

	current := leaf
	for {
		if err := ctx.Err(); err != nil {
			return nil, zcaperr.Wrap(zcaperr.KindInvalidDelegation, "delegation chain walk was cancelled", err)
		}
		if seen[current.ID] {
			return nil, zcaperr.New(zcaperr.KindInvalidDelegation, "The provided capability delegation is invalid.")
		}
		seen[current.ID] = true
		reverseChain = append(reverseChain, current)

		if err := current.Validate(); err != nil {
			return nil, zcaperr.Wrap(zcaperr.KindInvalidDelegation, "The provided capability delegation is invalid.", err)
		}

		if current.IsRoot() {
			break
		}

		if err := verifyProof(ctx, current, loader, suites); err != nil {
			return nil, err
		}
		if err := checkTTL(current, policy); err != nil {
			return nil, err
		}
		if err := checkClockSkew(current, policy); err != nil {
			return nil, err
		}

		parent, err := dereference(ctx, current.ParentCapability, loader)
		if err != nil {
			return nil, err
		}
		if err := checkControllerMatch(current, parent); err != nil {
			return nil, err
		}
		if err := checkTargetAttenuation(current, parent, policy); err != nil {
			return nil, err
		}
		current = parent

		if len(reverseChain) >= policy.MaxChainLength {
			return nil, zcaperr.New(zcaperr.KindInvalidDelegation, "delegation chain exceeds the maximum allowed length")
		}
	}

	chain := make([]*zcap.Capability, len(reverseChain))
	for i, c := range reverseChain {
		chain[len(reverseChain)-1-i] = c
	}
	return chain, nil
}

func verifyProof(ctx context.Context, capability *zcap.Capability, loader rootcap.DocumentLoader, suites []Suite) error {
	if len(suites) == 0 {
		return zcaperr.New(zcaperr.KindInvalidDelegation, "no delegation proof suite is configured")
	}
	var lastErr error
	for _, suite := range suites {
		ok, err := suite.VerifyCapabilityProof(ctx, capability, loader)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return nil
		}
	}
	if lastErr != nil {
		return zcaperr.Wrap(zcaperr.KindInvalidDelegation, "The provided capability delegation is invalid.", lastErr)
	}
	return zcaperr.New(zcaperr.KindInvalidDelegation, "The provided capability delegation is invalid.")
}

func checkTTL(capability *zcap.Capability, policy Policy) error {
	if capability.Proof == nil || capability.Expires == nil {
		return nil
	}
	ttl := capability.Expires.Sub(capability.Proof.Created)
	if ttl > policy.MaxDelegationTTL {
		return zcaperr.New(zcaperr.KindInvalidDelegation, "delegation exceeds the maximum allowed TTL")
	}
	return nil
}

// checkClockSkew enforces the clock-skew tolerance for a single link: its
// expires timestamp, and its proof's created timestamp, must be within
// policy.MaxClockSkew of policy.Now.
func checkClockSkew(capability *zcap.Capability, policy Policy) error {
	if capability.Expires != nil {
		if capability.Expires.Add(policy.MaxClockSkew).Before(policy.Now) {
			return zcaperr.New(zcaperr.KindInvalidDelegation, "delegation has expired")
		}
	}
	if capability.Proof != nil && !capability.Proof.Created.IsZero() {
		if capability.Proof.Created.After(policy.Now.Add(policy.MaxClockSkew)) {
			return zcaperr.New(zcaperr.KindInvalidDelegation, "delegation proof was created too far in the future")
		}
	}
	return nil
}

// checkControllerMatch enforces the controller-match rule: the delegation proof's
// signer must be a controller of the parent capability it claims authority
// from.
func checkControllerMatch(child, parent *zcap.Capability) error {
	if child.Proof == nil {
		return zcaperr.New(zcaperr.KindInvalidDelegation, "The provided capability delegation is invalid.")
	}
	signer := ControllerFromVerificationMethod(child.Proof.VerificationMethod)
	if parent.Controller.Empty() {
		return nil
	}
	if !parent.Controller.Contains(signer) {
		return zcaperr.New(zcaperr.KindInvalidDelegation, "delegation proof signer is not a controller of the parent capability")
	}
	return nil
}

// checkTargetAttenuation enforces the target-attenuation rule: a child's
// invocationTarget must equal its parent's, or — when attenuation is
// allowed — be a path-segment-boundary-safe attenuation of it.
func checkTargetAttenuation(child, parent *zcap.Capability, policy Policy) error {
	if child.InvocationTarget == parent.InvocationTarget {
		return nil
	}
	if policy.AllowTargetAttenuation && zcap.IsAttenuatedFrom(child.InvocationTarget, parent.InvocationTarget) {
		return nil
	}
	return zcaperr.New(zcaperr.KindInvalidDelegation, "invocationTarget is not consistent with its parent capability")
}

func dereference(ctx context.Context, id string, loader rootcap.DocumentLoader) (*zcap.Capability, error) {
	doc, err := loader.LoadDocument(ctx, id)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.KindInvalidDelegation, "failed to resolve parentCapability "+id, err)
	}
	capability, ok := doc.Document.(*zcap.Capability)
	if !ok {
		return nil, zcaperr.New(zcaperr.KindInvalidDelegation, "parentCapability "+id+" did not resolve to a capability document")
	}
	return capability, nil
}
