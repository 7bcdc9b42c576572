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
	"fmt"
	"net/http"
	"strings"

	"github.com/sage-x-project/sage/pkg/agent/did"

	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcap"
)

// DIDDocumentResolver resolves a did:sage:* identifier to its DID document,
// the same resolution step the core repo's default DID verifier performs
// before extracting a public key.
type DIDDocumentResolver interface {
	ResolveDIDDocument(ctx context.Context, agentDID did.AgentDID) (map[string]any, error)
}

// NewDocumentLoader returns a rootcap.DocumentLoader that resolves
// did:sage:* identifiers through resolver, for delegation chains whose
// non-root capabilities are addressed by DID rather than by an https://
// URL. It rejects any id that is not a did:sage: identifier, leaving those
// to the base loader a host layers underneath it via rootcap.New.
func NewDocumentLoader(resolver DIDDocumentResolver) rootcap.DocumentLoader {
	return rootcap.DocumentLoaderFunc(func(ctx context.Context, url string) (rootcap.Document, error) {
		if !strings.HasPrefix(url, "did:sage:") {
			return rootcap.Document{}, fmt.Errorf("sagezcap: document loader only resolves did:sage: identifiers, got %q", url)
		}
		doc, err := resolver.ResolveDIDDocument(ctx, did.AgentDID(url))
		if err != nil {
			return rootcap.Document{}, fmt.Errorf("sagezcap: resolve %s: %w", url, err)
		}
		return rootcap.Document{DocumentURL: url, Document: doc}, nil
	})
}

// OwnerResolver answers who controls the resource identified by an
// invocation target, the question a host's getRootController callback must
// answer for every root capability synthesis.
type OwnerResolver interface {
	ResolveOwnerDID(ctx context.Context, invocationTarget string) (did.AgentDID, error)
}

// NewRootControllerResolver adapts an OwnerResolver into a
// rootcap.GetRootController, the shape the pipeline's DocumentLoader
// requires for synthesizing root capabilities on the fly.
func NewRootControllerResolver(owners OwnerResolver) rootcap.GetRootController {
	return func(req *http.Request, rootCapabilityID, rootInvocationTarget string) (zcap.ControllerSet, error) {
		ownerDID, err := owners.ResolveOwnerDID(req.Context(), rootInvocationTarget)
		if err != nil {
			return zcap.ControllerSet{}, fmt.Errorf("sagezcap: resolve owner of %s: %w", rootInvocationTarget, err)
		}
		return zcap.NewControllerSet(string(ownerDID)), nil
	}
}
