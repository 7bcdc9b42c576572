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

// Package pipeline assembles the request-handling stages of the other
// packages (httpsig, digest, expected, rootcap, delegation, invocation)
// into the two entry points a host actually mounts: an invocation pipeline
// for ordinary requests, and a revocation pipeline for a dedicated
// "/revocations/<id>" route. Assembly happens once, at
// startup, from a plain config struct; each stage runs fresh per request.
package pipeline

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zcap-authz/zcap-authz-go/delegation"
	"github.com/zcap-authz/zcap-authz-go/digest"
	"github.com/zcap-authz/zcap-authz-go/expected"
	"github.com/zcap-authz/zcap-authz-go/httpsig"
	"github.com/zcap-authz/zcap-authz-go/invocation"
	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// contextKey namespaces the values a successful pipeline publishes to a
// request's context.
type contextKey string

const (
	invocationResultKey  contextKey = "zcap"
	revocationContextKey contextKey = "zcapRevocation"
)

// InvocationConfig is everything an invocation pipeline needs from the
// host.
type InvocationConfig struct {
	DocumentLoader         rootcap.DocumentLoader
	GetExpectedValues      expected.GetExpectedValues
	GetRootController      rootcap.GetRootController
	GetVerifier            invocation.GetVerifier
	InspectCapabilityChain delegation.InspectCapabilityChain
	SuiteFactory           delegation.SuiteFactory
	Policy                 delegation.Policy
	OnError                func(req *http.Request, err error)
}

// Assembler builds http.Handler-wrapping middleware from a host's
// InvocationConfig.
type Assembler struct {
	cfg InvocationConfig
}

// NewAssembler validates cfg's required callbacks and returns an Assembler
// that can wrap any number of downstream handlers.
func NewAssembler(cfg InvocationConfig) (*Assembler, error) {
	if cfg.DocumentLoader == nil || cfg.GetExpectedValues == nil || cfg.GetRootController == nil || cfg.GetVerifier == nil || cfg.SuiteFactory == nil {
		return nil, zcaperr.New(zcaperr.KindMisconfigured, "documentLoader, getExpectedValues, getRootController, getVerifier and suiteFactory are all required")
	}
	return &Assembler{cfg: cfg}, nil
}

// Wrap returns an http.Handler that runs SignatureHeaderParser → DigestVerifier
// → ExpectedValues resolver → InvocationVerifier ahead of next. On success,
// the invocation Result is attached to the request context and next runs;
// on failure, the configured error handling writes the response and next
// never runs.
func (a *Assembler) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		result, err := a.Verify(req)
		if err != nil {
			a.handleError(w, req, err)
			return
		}
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), invocationResultKey, result)))
	})
}

// Verify runs the invocation pipeline against req without wrapping a
// handler, for hosts that want to call it directly (e.g. from an RPC
// framework rather than net/http middleware).
func (a *Assembler) Verify(req *http.Request) (*invocation.Result, error) {
	sig, err := httpsig.ParseRequest(req)
	if err != nil {
		return nil, err
	}
	if err := digest.Verify(req); err != nil {
		return nil, err
	}
	values, err := expected.Resolve(req, a.cfg.GetExpectedValues)
	if err != nil {
		return nil, err
	}

	loader := rootcap.New(a.cfg.DocumentLoader, req, a.cfg.GetRootController)

	invCfg := invocation.Config{
		GetVerifier:            a.cfg.GetVerifier,
		SuiteFactory:           a.cfg.SuiteFactory,
		InspectCapabilityChain: a.cfg.InspectCapabilityChain,
		Policy:                 a.cfg.Policy,
	}
	return invocation.Verify(req, sig, values, loader, invCfg)
}

func (a *Assembler) handleError(w http.ResponseWriter, req *http.Request, err error) {
	if a.cfg.OnError != nil {
		a.cfg.OnError(req, err)
	}
	WriteError(w, err)
}

// WriteError writes the HTTP status and {name, message} body
// assigned to err. Errors that are not *zcaperr.Error are treated as an
// internal misconfiguration.
func WriteError(w http.ResponseWriter, err error) {
	zerr, ok := err.(*zcaperr.Error)
	if !ok {
		zerr = zcaperr.Wrap(zcaperr.KindMisconfigured, "unexpected error", err)
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(zerr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(zerr.AsBody())
}

// InvocationResultFromContext retrieves the Result an invocation pipeline
// published to req's context.
func InvocationResultFromContext(ctx context.Context) (*invocation.Result, bool) {
	result, ok := ctx.Value(invocationResultKey).(*invocation.Result)
	return result, ok
}

// RevocationContextFromContext retrieves the revocation Result a revocation
// pipeline published to req's context.
func RevocationContextFromContext(ctx context.Context) (*delegation.Result, bool) {
	result, ok := ctx.Value(revocationContextKey).(*delegation.Result)
	return result, ok
}
