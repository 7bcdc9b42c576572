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

package sagezcap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sage-x-project/sage/pkg/agent/did"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDocumentResolver struct {
	docs map[did.AgentDID]map[string]any
	err  error
}

func (m *mockDocumentResolver) ResolveDIDDocument(ctx context.Context, agentDID did.AgentDID) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[agentDID]
	if !ok {
		return nil, errors.New("did not found")
	}
	return doc, nil
}

func TestDocumentLoaderResolvesDIDDocument(t *testing.T) {
	resolver := &mockDocumentResolver{
		docs: map[did.AgentDID]map[string]any{
			"did:sage:ethereum:0xabc": {"id": "did:sage:ethereum:0xabc"},
		},
	}
	loader := NewDocumentLoader(resolver)

	doc, err := loader.LoadDocument(context.Background(), "did:sage:ethereum:0xabc")
	require.NoError(t, err)
	assert.Equal(t, "did:sage:ethereum:0xabc", doc.DocumentURL)
}

func TestDocumentLoaderRejectsNonDIDIdentifiers(t *testing.T) {
	loader := NewDocumentLoader(&mockDocumentResolver{})
	_, err := loader.LoadDocument(context.Background(), "https://example.test/caps/1")
	require.Error(t, err)
}

type mockOwnerResolver struct {
	owner did.AgentDID
	err   error
}

func (m *mockOwnerResolver) ResolveOwnerDID(ctx context.Context, invocationTarget string) (did.AgentDID, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.owner, nil
}

func TestRootControllerResolverResolvesOwner(t *testing.T) {
	resolve := NewRootControllerResolver(&mockOwnerResolver{owner: "did:sage:ethereum:0xowner"})

	req := httptest.NewRequest(http.MethodGet, "https://example.test/documents", nil)
	controllers, err := resolve(req, "urn:zcap:root:x", "https://example.test/documents")
	require.NoError(t, err)
	assert.True(t, controllers.Contains("did:sage:ethereum:0xowner"))
}

func TestRootControllerResolverPropagatesError(t *testing.T) {
	resolve := NewRootControllerResolver(&mockOwnerResolver{err: errors.New("registry down")})

	req := httptest.NewRequest(http.MethodGet, "https://example.test/documents", nil)
	_, err := resolve(req, "urn:zcap:root:x", "https://example.test/documents")
	require.Error(t, err)
}
