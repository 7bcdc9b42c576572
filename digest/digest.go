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

// Package digest verifies the RFC 3230-style "digest" header against the
// received request body. Verification consumes req.Body to hash it, then
// replaces it with a fresh reader over the same bytes so downstream
// handlers still see the body.
package digest

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strings"

	"github.com/zcap-authz/zcap-authz-go/httpsig"
	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// hashers maps the digest algorithm token (case-insensitive, as it appears
// before the "=" in the digest header) to its hash constructor.
var hashers = map[string]func() hash.Hash{
	"sha-256": sha256.New,
	"sha256":  sha256.New,
	"sha-512": sha512.New,
	"sha512":  sha512.New,
}

// Verify implements the body-presence and digest-matching rules: when req
// is judged to have a body (per httpsig.HasBodyHeaders) the "digest" header
// is required and must match
// the hash of the body bytes; req.Body is replaced with a fresh reader over
// those bytes so it can be read again downstream. When req is judged to
// have no body, any pre-populated body is discarded so downstream code
// cannot accidentally consume stale data.
func Verify(req *http.Request) error {
	if !httpsig.HasBodyHeaders(req) {
		req.Body = http.NoBody
		return nil
	}

	raw := req.Header.Get("digest")
	if raw == "" {
		return zcaperr.New(zcaperr.KindMissingDigest, `A "digest" header must be present when an HTTP body is present.`)
	}

	algo, expected, err := parseDigestHeader(raw)
	if err != nil {
		return zcaperr.Wrap(zcaperr.KindMissingDigest, `the "digest" header could not be parsed`, err)
	}
	newHash, ok := hashers[strings.ToLower(algo)]
	if !ok {
		return zcaperr.New(zcaperr.KindMissingDigest, fmt.Sprintf("unsupported digest algorithm %q", algo))
	}

	body := req.Body
	if body == nil {
		body = http.NoBody
	}
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return zcaperr.Wrap(zcaperr.KindDigestMismatch, "failed to read request body", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	h := newHash()
	h.Write(bodyBytes)
	actual := base64.StdEncoding.EncodeToString(h.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) != 1 {
		return zcaperr.New(zcaperr.KindDigestMismatch, `The "digest" header value does not match digest of body.`)
	}
	return nil
}

// parseDigestHeader splits a "digest" header value of the form
// "SHA-256=base64value" into its algorithm token and base64 value.
func parseDigestHeader(raw string) (algo, value string, err error) {
	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		return "", "", fmt.Errorf("digest header %q has no algorithm separator", raw)
	}
	// The base64 payload may itself contain "=" padding, so split on the
	// first "=" only and treat everything after it as the value.
	return raw[:eq], raw[eq+1:], nil
}
