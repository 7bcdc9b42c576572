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

package httpsig

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// SigningStringOptions carries the values needed to expand pseudo-headers
// while building the canonical signing string.
type SigningStringOptions struct {
	Method             string
	Path               string
	Host               string
	CapabilityInvocation string
}

// BuildSigningString reconstructs the canonical signing string a Signature
// claims to cover, by joining with newlines one "<lower-cased name>: <value>"
// line for each entry in sig.Headers. "(created)" and "(expires)" are
// expanded from sig; "(request-target)" is built from req's method and
// request URI, or from opts when req is nil. Ordinary header names are read
// from req, falling back to opts for "host" and "capability-invocation" when
// the caller wants to sign a request not yet fully constructed.
func BuildSigningString(sig *Signature, req *http.Request, opts SigningStringOptions) (string, error) {
	lines := make([]string, 0, len(sig.Headers))
	for _, name := range sig.Headers {
		lower := strings.ToLower(name)
		switch lower {
		case "(created)":
			if sig.Created.IsZero() {
				return "", zcaperr.New(zcaperr.KindMalformedAuthorization, `signed headers include "(created)" but no created parameter was supplied`)
			}
			lines = append(lines, fmt.Sprintf("(created): %d", sig.Created.Unix()))
		case "(expires)":
			if sig.Expires.IsZero() {
				return "", zcaperr.New(zcaperr.KindMalformedAuthorization, `signed headers include "(expires)" but no expires parameter was supplied`)
			}
			lines = append(lines, fmt.Sprintf("(expires): %d", sig.Expires.Unix()))
		case "(request-target)":
			method := opts.Method
			path := opts.Path
			if req != nil {
				method = req.Method
				path = req.URL.RequestURI()
			}
			lines = append(lines, fmt.Sprintf("(request-target): %s %s", strings.ToLower(method), path))
		case "host":
			host := opts.Host
			if req != nil && req.Header.Get("host") != "" {
				host = req.Header.Get("host")
			} else if req != nil && req.Host != "" {
				host = req.Host
			}
			lines = append(lines, fmt.Sprintf("host: %s", host))
		case "capability-invocation":
			value := opts.CapabilityInvocation
			if req != nil && req.Header.Get("capability-invocation") != "" {
				value = req.Header.Get("capability-invocation")
			}
			lines = append(lines, fmt.Sprintf("capability-invocation: %s", value))
		default:
			if req == nil {
				return "", zcaperr.New(zcaperr.KindMalformedAuthorization, fmt.Sprintf("cannot resolve header %q without a request", name))
			}
			lines = append(lines, fmt.Sprintf("%s: %s", lower, req.Header.Get(name)))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// RequiredHeaders returns the minimum header set the canonical signing
// string must cover: "(created)", "(expires)", "(request-target)", "host",
// "capability-invocation", plus "content-type" and "digest" when hasBody is
// true.
func RequiredHeaders(hasBody bool) []string {
	base := []string{"(created)", "(expires)", "(request-target)", "host", "capability-invocation"}
	if hasBody {
		base = append(base, "content-type", "digest")
	}
	return base
}

// CoversRequired reports whether sig.Headers is a superset of the headers
// RequiredHeaders(hasBody) names, case-insensitively.
func CoversRequired(sig *Signature, hasBody bool) bool {
	covered := make(map[string]struct{}, len(sig.Headers))
	for _, h := range sig.Headers {
		covered[strings.ToLower(h)] = struct{}{}
	}
	for _, required := range RequiredHeaders(hasBody) {
		if _, ok := covered[required]; !ok {
			return false
		}
	}
	return true
}

// HasBodyHeaders reports whether req carries either a content-length or
// transfer-encoding header, the presence test used to decide
// whether a request is considered to have a body.
func HasBodyHeaders(req *http.Request) bool {
	if req.Header.Get("transfer-encoding") != "" || len(req.TransferEncoding) > 0 {
		return true
	}
	if cl := req.Header.Get("content-length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			return true
		}
	}
	return req.ContentLength > 0
}
