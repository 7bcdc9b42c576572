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

// Package zcaptest builds fully-headered, internally-consistent signed
// requests for tests. It plays the role a real HTTP-Signature client library
// would play in production, adapted from a request-signing shape built
// around @method/@target-uri components and split Signature/Signature-Input
// headers into this package's single draft-cavage "authorization" header.
// It is test-only: nothing outside _test.go files may import it.
package zcaptest

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/zcap-authz/zcap-authz-go/httpsig"
)

// SignFunc signs signingString and returns the raw (unencoded) signature
// bytes. Tests that don't care about real cryptography can supply a fixed
// marker signer; tests exercising a real suite pass a func that calls a key
// pair's Sign method.
type SignFunc func(signingString string) []byte

// MarkerSigner returns a SignFunc producing a fixed signature value,
// suitable for tests whose fake KeyVerifier accepts any signature.
func MarkerSigner() SignFunc {
	return func(string) []byte { return []byte("marker") }
}

// Request describes the signed request to build.
type Request struct {
	Method            string
	URL               string
	Body              []byte
	KeyID             string
	Algorithm         string // defaults to "ed25519"
	Capability        string // the invoked capability id
	Action            string // defaults to "write" when Body is non-empty, "read" otherwise
	Created           time.Time
	Expires           time.Time
	Sign              SignFunc
	AdditionalHeaders []string // extra header names to cover beyond RequiredHeaders
}

// Build constructs an *http.Request carrying a "digest" header (when Body is
// non-empty), a "capability-invocation" header, and an "authorization"
// header whose signature covers exactly the headers RequiredHeaders(hasBody)
// names, plus AdditionalHeaders.
func Build(r Request) *http.Request {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	hasBody := len(r.Body) > 0

	var req *http.Request
	if hasBody {
		req = httptest.NewRequest(method, r.URL, bytes.NewReader(r.Body))
		req.ContentLength = int64(len(r.Body))
		req.Header.Set("digest", digestHeader(r.Body))
	} else {
		req = httptest.NewRequest(method, r.URL, nil)
	}
	req.Header.Set("host", req.URL.Host)

	action := r.Action
	if action == "" {
		if hasBody {
			action = "write"
		} else {
			action = "read"
		}
	}
	req.Header.Set("capability-invocation", `zcap capability="`+r.Capability+`",action="`+action+`"`)

	created := r.Created
	if created.IsZero() {
		created = time.Now()
	}
	expires := r.Expires
	if expires.IsZero() {
		expires = created.Add(5 * time.Minute)
	}
	algorithm := r.Algorithm
	if algorithm == "" {
		algorithm = "ed25519"
	}

	headers := append(append([]string{}, httpsig.RequiredHeaders(hasBody)...), r.AdditionalHeaders...)
	sig := &httpsig.Signature{
		KeyID:     r.KeyID,
		Algorithm: algorithm,
		Headers:   headers,
		Created:   created,
		Expires:   expires,
	}
	signingString, err := httpsig.BuildSigningString(sig, req, httpsig.SigningStringOptions{})
	if err != nil {
		panic(err)
	}

	sign := r.Sign
	if sign == nil {
		sign = MarkerSigner()
	}
	rawSignature := sign(signingString)

	auth := `Signature keyId="` + r.KeyID + `",algorithm="` + algorithm +
		`",headers="` + strings.Join(headers, " ") +
		`",signature="` + httpsig.EncodeSignature(rawSignature) +
		`",created=` + strconv.FormatInt(created.Unix(), 10) +
		`,expires=` + strconv.FormatInt(expires.Unix(), 10)
	req.Header.Set("authorization", auth)

	return req
}

func digestHeader(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}
