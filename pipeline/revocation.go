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

package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zcap-authz/zcap-authz-go/delegation"
	"github.com/zcap-authz/zcap-authz-go/digest"
	"github.com/zcap-authz/zcap-authz-go/expected"
	"github.com/zcap-authz/zcap-authz-go/httpsig"
	"github.com/zcap-authz/zcap-authz-go/invocation"
	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcap"
	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

const revocationRouteSegment = "/revocations/"

// RevocationConfig is everything the revocation pipeline needs from the
// host. It is deliberately narrower than InvocationConfig:
// getExpectedValues is synthesized internally, not host-supplied.
type RevocationConfig struct {
	DocumentLoader         rootcap.DocumentLoader
	ExpectedHost           string
	GetRootController      rootcap.GetRootController
	GetVerifier            invocation.GetVerifier
	InspectCapabilityChain delegation.InspectCapabilityChain
	SuiteFactory           delegation.SuiteFactory
	Policy                 delegation.Policy
	OnError                func(req *http.Request, err error)
}

// RevocationAssembler builds middleware for the opinionated revocation
// route "<anyPrefix>/revocations/<revocationId>".
type RevocationAssembler struct {
	cfg RevocationConfig
}

// NewRevocationAssembler validates cfg and returns a RevocationAssembler.
func NewRevocationAssembler(cfg RevocationConfig) (*RevocationAssembler, error) {
	if cfg.DocumentLoader == nil || cfg.ExpectedHost == "" || cfg.GetRootController == nil || cfg.GetVerifier == nil || cfg.SuiteFactory == nil {
		return nil, zcaperr.New(zcaperr.KindMisconfigured, "documentLoader, expectedHost, getRootController, getVerifier and suiteFactory are all required")
	}
	return &RevocationAssembler{cfg: cfg}, nil
}

// Wrap returns an http.Handler running the revocation pipeline ahead of
// next, publishing both the invocation Result and the delegation Result to
// the request context on success.
func (a *RevocationAssembler) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		invResult, revResult, err := a.Verify(req)
		if err != nil {
			if a.cfg.OnError != nil {
				a.cfg.OnError(req, err)
			}
			WriteError(w, err)
			return
		}
		ctx := context.WithValue(req.Context(), invocationResultKey, invResult)
		ctx = context.WithValue(ctx, revocationContextKey, revResult)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// Verify runs the full revocation algorithm against req.
func (a *RevocationAssembler) Verify(req *http.Request) (*invocation.Result, *delegation.Result, error) {
	prefix, revocationID, err := splitRevocationRoute(req.URL.Path)
	if err != nil {
		return nil, nil, err
	}
	serviceObjectID := "https://" + a.cfg.ExpectedHost + prefix
	revocationRootID := serviceObjectID + revocationRouteSegment + url.QueryEscape(revocationID)

	getExpectedValues := func(r *http.Request) (expected.Raw, error) {
		return expected.Raw{
			Host:                 a.cfg.ExpectedHost,
			Action:               "write",
			RootInvocationTarget: []string{serviceObjectID, revocationRootID},
		}, nil
	}

	sig, err := httpsig.ParseRequest(req)
	if err != nil {
		return nil, nil, err
	}
	if err := digest.Verify(req); err != nil {
		return nil, nil, err
	}
	values, err := expected.Resolve(req, getExpectedValues)
	if err != nil {
		return nil, nil, err
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, nil, zcaperr.Wrap(zcaperr.KindInvalidDelegation, "failed to read revocation request body", err)
	}

	var submitted zcap.Capability
	if err := json.Unmarshal(bodyBytes, &submitted); err != nil {
		return nil, nil, zcaperr.Wrap(zcaperr.KindInvalidDelegation, "The provided capability delegation is invalid.", err)
	}

	documentLoader := rootcap.New(a.cfg.DocumentLoader, req, a.cfg.GetRootController)

	suites, err := a.cfg.SuiteFactory(req)
	if err != nil {
		return nil, nil, zcaperr.Wrap(zcaperr.KindInvalidDelegation, `"suiteFactory" failed`, err)
	}

	revResult, err := delegation.Verify(req.Context(), &submitted, documentLoader, suites, a.cfg.Policy, a.cfg.InspectCapabilityChain)
	if err != nil {
		return nil, nil, err
	}

	rootInvocationTarget := revResult.Chain[0].InvocationTarget
	if !zcap.IsAttenuatedFrom(rootInvocationTarget, serviceObjectID) {
		return nil, nil, zcaperr.New(zcaperr.KindUnrelatedServiceObject, "the submitted delegation does not belong to this service object")
	}

	wrappedGetRootController := func(r *http.Request, rootCapabilityID, invocationTarget string) (zcap.ControllerSet, error) {
		switch invocationTarget {
		case serviceObjectID:
			return a.cfg.GetRootController(r, rootCapabilityID, invocationTarget)
		case revocationRootID:
			return revResult.ChainControllers, nil
		default:
			return zcap.ControllerSet{}, zcaperr.New(zcaperr.KindNotAuthorized, "unexpected root invocation target for a revocation request")
		}
	}
	invocationLoader := rootcap.New(a.cfg.DocumentLoader, req, wrappedGetRootController)

	invCfg := invocation.Config{
		GetVerifier:            a.cfg.GetVerifier,
		SuiteFactory:           a.cfg.SuiteFactory,
		InspectCapabilityChain: a.cfg.InspectCapabilityChain,
		Policy:                 a.cfg.Policy,
	}
	invResult, err := invocation.Verify(req, sig, values, invocationLoader, invCfg)
	if err != nil {
		return nil, nil, err
	}

	return invResult, revResult, nil
}

// splitRevocationRoute extracts the route prefix and revocation id from a
// path of the form "<anyPrefix>/revocations/<revocationId>". It fails with
// zcaperr.KindMisconfigured if path does not have that shape.
func splitRevocationRoute(path string) (prefix, revocationID string, err error) {
	idx := strings.Index(path, revocationRouteSegment)
	if idx < 0 {
		return "", "", zcaperr.New(zcaperr.KindMisconfigured, "the revocation pipeline must be mounted at a \"/revocations/<id>\" route")
	}
	prefix = path[:idx]
	revocationID = path[idx+len(revocationRouteSegment):]
	if revocationID == "" {
		return "", "", zcaperr.New(zcaperr.KindMisconfigured, "the revocation route is missing a revocation id")
	}
	decoded, err := url.QueryUnescape(revocationID)
	if err != nil {
		return "", "", zcaperr.Wrap(zcaperr.KindMisconfigured, "the revocation id could not be decoded", err)
	}
	return prefix, decoded, nil
}
