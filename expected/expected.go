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

// Package expected resolves and validates the per-request ExpectedValues a
// host callback returns, and computes the well-known root capability ids
// derived from them.
package expected

import (
	"net/http"

	"github.com/zcap-authz/zcap-authz-go/zcap"
	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// defaultActionByMethod is the fixed table of default actions, by HTTP
// method, for requests that do not specify an action explicitly.
var defaultActionByMethod = map[string]string{
	http.MethodGet:     "read",
	http.MethodHead:    "read",
	http.MethodOptions: "read",
	http.MethodPost:    "write",
	http.MethodPut:     "write",
	http.MethodPatch:   "write",
	http.MethodDelete:  "write",
	http.MethodConnect: "write",
	http.MethodTrace:   "write",
}

// Raw is the shape a host's getExpectedValues callback returns, before
// validation and defaulting.
type Raw struct {
	Host                 string
	RootInvocationTarget []string
	Action               string
	Target               string
}

// Values is the validated, fully-defaulted result of resolving Raw against
// a request: everything downstream stages need to check an invocation
// against.
type Values struct {
	Host                 string
	RootInvocationTarget []string
	RootCapabilityIDs    []string
	Action               string
	Target               string
}

// GetExpectedValues is the host callback signature: given the inbound
// request, return the values the invocation is expected to satisfy.
type GetExpectedValues func(req *http.Request) (Raw, error)

// Resolve invokes get, validates its result, and applies the method-based
// action default and the "https://<host><path>" target default. Any
// validation failure surfaces as zcaperr.KindBadExpectedValues; an
// unsupported HTTP method with no explicit action surfaces as
// zcaperr.KindUnsupportedMethod.
func Resolve(req *http.Request, get GetExpectedValues) (*Values, error) {
	raw, err := get(req)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.KindBadExpectedValues, `"getExpectedValues" failed`, err)
	}

	if raw.Host == "" {
		return nil, zcaperr.New(zcaperr.KindBadExpectedValues, `"getExpectedValues" must return a non-empty "host"`)
	}
	if len(raw.RootInvocationTarget) == 0 {
		return nil, zcaperr.New(zcaperr.KindBadExpectedValues, `"getExpectedValues" must return "rootInvocationTarget"`)
	}
	for _, target := range raw.RootInvocationTarget {
		if err := zcap.ValidateAbsoluteURI(target); err != nil {
			return nil, zcaperr.Wrap(zcaperr.KindBadExpectedValues, `"rootInvocationTarget" must be one or more absolute URIs`, err)
		}
	}

	action := raw.Action
	if action == "" {
		var ok bool
		action, ok = defaultActionByMethod[req.Method]
		if !ok {
			return nil, zcaperr.New(zcaperr.KindUnsupportedMethod, "no default action is defined for method "+req.Method)
		}
	}

	target := raw.Target
	if target == "" {
		target = "https://" + raw.Host + req.URL.RequestURI()
	} else if err := zcap.ValidateAbsoluteURI(target); err != nil {
		return nil, zcaperr.Wrap(zcaperr.KindBadExpectedValues, `"target" must be an absolute URI`, err)
	}

	ids := make([]string, len(raw.RootInvocationTarget))
	for i, t := range raw.RootInvocationTarget {
		ids[i] = zcap.RootCapabilityID(t)
	}

	return &Values{
		Host:                 raw.Host,
		RootInvocationTarget: raw.RootInvocationTarget,
		RootCapabilityIDs:    ids,
		Action:               action,
		Target:               target,
	}, nil
}

// AllowsRootCapabilityID reports whether id is one of v's expected root
// capability ids.
func (v *Values) AllowsRootCapabilityID(id string) bool {
	for _, expected := range v.RootCapabilityIDs {
		if expected == id {
			return true
		}
	}
	return false
}
