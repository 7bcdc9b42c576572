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

// Package httpsig parses the HTTP-Signature "authorization" header (the
// draft-cavage single-header scheme: keyId, algorithm, headers, signature,
// created, expires) and builds the canonical signing string it covers. No
// cryptographic verification happens here — that is the caller's job, given
// the raw signature bytes and the signing string this package produces.
package httpsig

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// scheme is the required prefix of the authorization header value.
const scheme = "Signature"

// Signature is the subset of the authorization header parameters a
// "parsed signature": the signing key id, the ordered list of covered
// headers, the raw signature bytes, and its created/expires/algorithm
// parameters.
type Signature struct {
	KeyID     string
	Algorithm string
	Headers   []string
	Signature []byte
	Created   time.Time
	Expires   time.Time
}

// Parse extracts a Signature from the raw "authorization" header value.
// It fails with zcaperr.KindMalformedAuthorization when the header is
// missing, does not use the "Signature" scheme, or has unparseable
// parameters. Parameter ordering and quoting are not significant.
func Parse(rawHeader string) (*Signature, error) {
	if rawHeader == "" {
		return nil, zcaperr.New(zcaperr.KindMalformedAuthorization, `"authorization" header is missing`)
	}

	scheme, params, ok := splitScheme(rawHeader)
	if !ok {
		return nil, zcaperr.New(zcaperr.KindMalformedAuthorization, `"authorization" header must use the Signature scheme`)
	}
	_ = scheme

	fields, err := parseParams(params)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.KindMalformedAuthorization, `"authorization" header has unparseable parameters`, err)
	}

	sig := &Signature{
		KeyID:     fields["keyid"],
		Algorithm: fields["algorithm"],
	}
	if sig.KeyID == "" {
		return nil, zcaperr.New(zcaperr.KindMalformedAuthorization, `"authorization" header is missing "keyId"`)
	}

	if raw, ok := fields["headers"]; ok && raw != "" {
		sig.Headers = strings.Fields(raw)
	} else {
		sig.Headers = []string{"(created)"}
	}

	sigValue, ok := fields["signature"]
	if !ok || sigValue == "" {
		return nil, zcaperr.New(zcaperr.KindMalformedAuthorization, `"authorization" header is missing "signature"`)
	}
	decoded, err := decodeSignature(sigValue)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.KindMalformedAuthorization, `"signature" parameter is not valid base64`, err)
	}
	sig.Signature = decoded

	if raw, ok := fields["created"]; ok && raw != "" {
		created, err := parseUnixSeconds(raw)
		if err != nil {
			return nil, zcaperr.Wrap(zcaperr.KindMalformedAuthorization, `"created" parameter is not a valid timestamp`, err)
		}
		sig.Created = created
	}
	if raw, ok := fields["expires"]; ok && raw != "" {
		expires, err := parseUnixSeconds(raw)
		if err != nil {
			return nil, zcaperr.Wrap(zcaperr.KindMalformedAuthorization, `"expires" parameter is not a valid timestamp`, err)
		}
		sig.Expires = expires
	}

	return sig, nil
}

// ParseRequest is a convenience wrapper reading the "authorization" header
// off req.
func ParseRequest(req *http.Request) (*Signature, error) {
	return Parse(req.Header.Get("authorization"))
}

func splitScheme(header string) (scheme string, rest string, ok bool) {
	i := strings.IndexByte(header, ' ')
	if i < 0 {
		return "", "", false
	}
	s := header[:i]
	if !strings.EqualFold(s, "Signature") {
		return "", "", false
	}
	return s, strings.TrimSpace(header[i+1:]), true
}

// parseParams parses a comma-separated list of key=value or key="value"
// pairs, tolerant of surrounding whitespace around commas and equal signs.
func parseParams(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range splitParams(s) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return nil, &paramError{part}
		}
		key := strings.ToLower(strings.TrimSpace(part[:eq]))
		val := strings.TrimSpace(part[eq+1:])
		val = strings.Trim(val, `"`)
		out[key] = val
	}
	return out, nil
}

// splitParams splits on commas that are not inside a quoted string, since
// the signature value's base64 payload cannot itself contain a comma but
// header lists and future extensions might quote values containing one.
func splitParams(s string) []string {
	var parts []string
	var buf strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			buf.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	parts = append(parts, buf.String())
	return parts
}

type paramError struct{ field string }

func (e *paramError) Error() string { return "unparseable parameter: " + e.field }

func parseUnixSeconds(raw string) (time.Time, error) {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
