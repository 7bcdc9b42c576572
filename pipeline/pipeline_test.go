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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcap-authz/zcap-authz-go/delegation"
	"github.com/zcap-authz/zcap-authz-go/expected"
	"github.com/zcap-authz/zcap-authz-go/httpsig"
	"github.com/zcap-authz/zcap-authz-go/invocation"
	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcap"
)

const adminDID = "did:key:z6MkfecoAdminBriiaR"

type fakeVerifier struct{ accept bool }

func (v fakeVerifier) Verify(data, signature []byte) bool { return v.accept }

func digestHeader(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

// buildRequest constructs a fully-headered request whose authorization
// header names the admin DID's "#z1" key. The signature bytes are a fixed marker;
// tests select whether the fake verifier accepts them.
func buildRequest(t *testing.T, method, target string, body []byte, capabilityID string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.Header.Set("digest", digestHeader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("host", req.URL.Host)
	req.Header.Set("capability-invocation", `zcap capability="`+capabilityID+`",action="write"`)

	hasBody := body != nil
	now := time.Now()
	raw := `Signature keyId="` + adminDID + `#z1",algorithm="ed25519",headers="` + strings.Join(httpsig.RequiredHeaders(hasBody), " ") +
		`",signature="` + httpsig.EncodeSignature([]byte("marker")) + `",created=` + strconv.FormatInt(now.Unix(), 10) +
		`,expires=` + strconv.FormatInt(now.Add(5*time.Minute).Unix(), 10)
	req.Header.Set("authorization", raw)
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"Post request was successful."}`))
	})
}

func adminOnlyLoader() rootcap.DocumentLoader {
	return rootcap.DocumentLoaderFunc(func(ctx context.Context, url string) (rootcap.Document, error) {
		return rootcap.Document{}, errors.New("no non-root documents in this fixture")
	})
}

func baseInvocationConfig(t *testing.T, target string, accept bool, verificationMethod string) InvocationConfig {
	t.Helper()
	return InvocationConfig{
		DocumentLoader: adminOnlyLoader(),
		GetExpectedValues: func(r *http.Request) (expected.Raw, error) {
			return expected.Raw{Host: r.URL.Host, RootInvocationTarget: []string{target}}, nil
		},
		GetRootController: func(r *http.Request, rootCapabilityID, rootInvocationTarget string) (zcap.ControllerSet, error) {
			return zcap.NewControllerSet(adminDID), nil
		},
		GetVerifier: func(keyID string, loader rootcap.DocumentLoader) (invocation.ResolvedVerifier, error) {
			return invocation.ResolvedVerifier{Verifier: fakeVerifier{accept: accept}, VerificationMethod: verificationMethod}, nil
		},
		SuiteFactory: func(req *http.Request) ([]delegation.Suite, error) { return nil, nil },
	}
}

func TestInvocationPipelineHappyPathWrite(t *testing.T) {
	target := "https://localhost:8443/documents"
	body := []byte(`{"name":"test"}`)
	req := buildRequest(t, http.MethodPost, target, body, zcap.RootCapabilityID(target))

	assembler, err := NewAssembler(baseInvocationConfig(t, target, true, adminDID+"#z1"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assembler.Wrap(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post request was successful.")
}

func TestInvocationPipelineWrongController(t *testing.T) {
	target := "https://localhost:8443/documents"
	body := []byte(`{"name":"test"}`)
	req := buildRequest(t, http.MethodPost, target, body, zcap.RootCapabilityID(target))

	assembler, err := NewAssembler(baseInvocationConfig(t, target, true, "did:key:zEve#z1"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assembler.Wrap(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvocationPipelineMissingDigest(t *testing.T) {
	target := "https://localhost:8443/documents"
	body := []byte(`{"name":"test"}`)
	req := buildRequest(t, http.MethodPost, target, body, zcap.RootCapabilityID(target))
	req.Header.Del("digest")

	assembler, err := NewAssembler(baseInvocationConfig(t, target, true, adminDID+"#z1"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assembler.Wrap(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// The body is JSON, so the quotes inside the message are escaped.
	assert.Contains(t, rec.Body.String(), `A \"digest\" header must be present`)
}

func TestInvocationPipelineDigestMismatch(t *testing.T) {
	target := "https://localhost:8443/documents"
	signedBody := []byte(`{"name":"test"}`)
	actualBody := []byte(`{"name":"not test"}`)
	req := buildRequest(t, http.MethodPost, target, signedBody, zcap.RootCapabilityID(target))
	req.Body = io.NopCloser(bytes.NewReader(actualBody))
	req.ContentLength = int64(len(actualBody))

	assembler, err := NewAssembler(baseInvocationConfig(t, target, true, adminDID+"#z1"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assembler.Wrap(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `does not match digest of body`)
}

func TestInvocationPipelineTargetMismatch(t *testing.T) {
	target := "https://localhost:8443/documents"
	other := "https://localhost:8443/test/abc"
	req := buildRequest(t, http.MethodPost, target, nil, zcap.RootCapabilityID(other))

	cfg := baseInvocationConfig(t, target, true, adminDID+"#z1")
	assembler, err := NewAssembler(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assembler.Wrap(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvocationPipelineMisshapedExpectedValues(t *testing.T) {
	target := "https://localhost:8443/documents"
	req := buildRequest(t, http.MethodPost, target, nil, zcap.RootCapabilityID(target))

	cfg := baseInvocationConfig(t, target, true, adminDID+"#z1")
	cfg.GetExpectedValues = func(r *http.Request) (expected.Raw, error) {
		return expected.Raw{}, errors.New(`"getExpectedValues" must return an object.`)
	}
	assembler, err := NewAssembler(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assembler.Wrap(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
