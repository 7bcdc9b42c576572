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

// Package invocation verifies that an incoming HTTP request is authorized
// by the capability it invokes: it checks the request's HTTP signature,
// walks the invoked capability's delegation chain to a root the caller
// expects, and confirms the requested action and target are within what
// the capability grants.
package invocation

import (
	"context"
	"net/http"
	"time"

	"github.com/zcap-authz/zcap-authz-go/delegation"
	"github.com/zcap-authz/zcap-authz-go/expected"
	"github.com/zcap-authz/zcap-authz-go/httpsig"
	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcap"
	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// KeyVerifier checks whether signature is a valid signature over data
// under some key. Implementations wrap the host's cryptographic suite; the
// core never handles key material directly.
type KeyVerifier interface {
	Verify(data, signature []byte) bool
}

// ResolvedVerifier is what GetVerifier returns: a KeyVerifier plus the
// verification-method identifier it corresponds to, so the caller's
// controller can be checked against the invoked capability's controller.
type ResolvedVerifier struct {
	Verifier           KeyVerifier
	VerificationMethod string
}

// GetVerifier is the host callback named "getVerifier": given a
// signing key id and the request's document loader, resolve the key to a
// verifier and its verification-method id.
type GetVerifier func(keyID string, loader rootcap.DocumentLoader) (ResolvedVerifier, error)

// Config bundles everything an invocation verification pass needs beyond
// the request itself and the values computed by earlier pipeline stages.
type Config struct {
	GetVerifier            GetVerifier
	SuiteFactory           delegation.SuiteFactory
	InspectCapabilityChain delegation.InspectCapabilityChain
	Policy                 delegation.Policy
}

// Result is the verification result returned on success: the invoked
// capability's controller, the key id that signed the invocation, and the
// dereferenced chain root-to-leaf.
type Result struct {
	Controller string
	KeyID      string
	Chain      []*zcap.Capability
}

// Verify runs the full invocation-verification algorithm against req, given its
// already-parsed signature, the resolved expected values, and a
// request-scoped document loader (typically a *rootcap.Loader so
// well-known root ids resolve without a round trip). A missing or malformed
// "capability-invocation" header surfaces as
// zcaperr.KindMalformedAuthorization; every other failure surfaces
// as zcaperr.KindNotAuthorized, matching the "no partial credit" policy the
// spec assigns to the invocation stage.
func Verify(req *http.Request, sig *httpsig.Signature, values *expected.Values, loader rootcap.DocumentLoader, cfg Config) (*Result, error) {
	signingString, err := httpsig.BuildSigningString(sig, req, httpsig.SigningStringOptions{})
	if err != nil {
		return nil, notAuthorized("failed to reconstruct the canonical signing string", err)
	}

	resolved, err := cfg.GetVerifier(sig.KeyID, loader)
	if err != nil {
		return nil, notAuthorized("failed to resolve the invocation signing key", err)
	}
	if resolved.Verifier == nil || !resolved.Verifier.Verify([]byte(signingString), sig.Signature) {
		return nil, zcaperr.New(zcaperr.KindNotAuthorized, "Forbidden: the invocation signature is not valid.")
	}

	if err := checkSignatureClockSkew(sig, cfg.Policy); err != nil {
		return nil, err
	}

	invocationHeader, err := ParseCapabilityInvocation(req.Header.Get("capability-invocation"))
	if err != nil {
		return nil, err
	}

	invoked, err := dereferenceInvoked(req.Context(), invocationHeader.Capability, loader)
	if err != nil {
		return nil, notAuthorized("failed to resolve the invoked capability", err)
	}

	suites, err := cfg.SuiteFactory(req)
	if err != nil {
		return nil, notAuthorized(`"suiteFactory" failed`, err)
	}

	chain, err := delegation.WalkChain(req.Context(), invoked, loader, suites, cfg.Policy)
	if err != nil {
		return nil, notAuthorized("the invoked capability's delegation chain is invalid", err)
	}

	if !values.AllowsRootCapabilityID(chain[0].ID) {
		return nil, zcaperr.New(zcaperr.KindNotAuthorized, "Forbidden: the invoked capability does not chain to an expected root.")
	}

	if cfg.InspectCapabilityChain != nil {
		ids := make([]string, len(chain))
		for i, c := range chain {
			ids[i] = c.ID
		}
		valid, err := cfg.InspectCapabilityChain(ids)
		if err != nil {
			return nil, notAuthorized("inspectCapabilityChain failed", err)
		}
		if !valid {
			return nil, zcaperr.New(zcaperr.KindNotAuthorized, "Forbidden: the capability chain was rejected.")
		}
	}

	signerController := delegation.ControllerFromVerificationMethod(resolved.VerificationMethod)
	if !invoked.Controller.Empty() && !invoked.Controller.Contains(signerController) {
		return nil, zcaperr.New(zcaperr.KindNotAuthorized, "Forbidden: the signing key's controller does not match the invoked capability's controller.")
	}

	if !invoked.AllowsAction(values.Action) {
		return nil, zcaperr.New(zcaperr.KindNotAuthorized, "Forbidden: the invoked capability does not grant the requested action.")
	}
	if !targetMatches(invoked.InvocationTarget, values.Target, cfg.Policy.AllowTargetAttenuation) {
		return nil, zcaperr.New(zcaperr.KindNotAuthorized, "Forbidden: the invoked capability's target does not match the request.")
	}

	return &Result{
		Controller: signerController,
		KeyID:      sig.KeyID,
		Chain:      chain,
	}, nil
}

// checkSignatureClockSkew enforces the same clock-skew tolerance the
// delegation chain walk applies to each proof's timestamps, but against the
// invocation signature's own created/expires bounds: an invocation must not
// be replayed after it expires, and its created timestamp must not claim a
// time further in the future than the tolerated skew allows.
func checkSignatureClockSkew(sig *httpsig.Signature, policy delegation.Policy) error {
	skew := policy.MaxClockSkew
	if skew == 0 {
		skew = delegation.DefaultMaxClockSkew
	}
	now := policy.Now
	if now.IsZero() {
		now = time.Now()
	}
	if !sig.Expires.IsZero() && sig.Expires.Add(skew).Before(now) {
		return zcaperr.New(zcaperr.KindNotAuthorized, "Forbidden: the invocation signature has expired.")
	}
	if !sig.Created.IsZero() && sig.Created.After(now.Add(skew)) {
		return zcaperr.New(zcaperr.KindNotAuthorized, "Forbidden: the invocation signature was created too far in the future.")
	}
	return nil
}

func dereferenceInvoked(ctx context.Context, id string, loader rootcap.DocumentLoader) (*zcap.Capability, error) {
	doc, err := loader.LoadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	capability, ok := doc.Document.(*zcap.Capability)
	if !ok {
		return nil, zcaperr.New(zcaperr.KindNotAuthorized, "invoked capability id did not resolve to a capability document")
	}
	return capability, nil
}

func targetMatches(invocationTarget, target string, allowAttenuation bool) bool {
	if invocationTarget == target {
		return true
	}
	return allowAttenuation && zcap.IsAttenuatedFrom(target, invocationTarget)
}

func notAuthorized(message string, cause error) error {
	return zcaperr.Wrap(zcaperr.KindNotAuthorized, "Forbidden: "+message+".", cause)
}
