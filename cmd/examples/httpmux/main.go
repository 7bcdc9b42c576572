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

// This example demonstrates mounting an invocation pipeline on an ordinary
// route and a revocation pipeline on a dedicated ".../revocations/{id}"
// route using nothing but net/http.ServeMux. It names one fixed admin DID
// as the controller of every root capability rather than using a real DID
// resolver, so it runs standalone without network access.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/zcap-authz/zcap-authz-go/delegation"
	"github.com/zcap-authz/zcap-authz-go/expected"
	"github.com/zcap-authz/zcap-authz-go/invocation"
	"github.com/zcap-authz/zcap-authz-go/pipeline"
	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcap"
)

const (
	host          = "localhost:8443"
	adminDID      = "did:key:z6MkfExampleAdmin"
	documentsPath = "/documents"
)

// memoryVerifier accepts any non-empty signature; a real deployment supplies a
// KeyVerifier backed by pkg/sagezcap or its own crypto suite.
type memoryVerifier struct{}

func (memoryVerifier) Verify(data, signature []byte) bool { return len(signature) > 0 }

func main() {
	fmt.Println("=== zcap-authz-go httpmux example ===")

	getRootController := func(r *http.Request, rootCapabilityID, rootInvocationTarget string) (zcap.ControllerSet, error) {
		return zcap.NewControllerSet(adminDID), nil
	}
	getVerifier := func(keyID string, loader rootcap.DocumentLoader) (invocation.ResolvedVerifier, error) {
		return invocation.ResolvedVerifier{Verifier: memoryVerifier{}, VerificationMethod: adminDID + "#key-1"}, nil
	}
	suiteFactory := func(req *http.Request) ([]delegation.Suite, error) { return nil, nil }

	invAssembler, err := pipeline.NewAssembler(pipeline.InvocationConfig{
		DocumentLoader: rootcap.DocumentLoaderFunc(missingDocumentLoader),
		GetExpectedValues: func(r *http.Request) (expected.Raw, error) {
			return expected.Raw{Host: host, RootInvocationTarget: []string{"https://" + host + documentsPath}}, nil
		},
		GetRootController: getRootController,
		GetVerifier:       getVerifier,
		SuiteFactory:      suiteFactory,
	})
	if err != nil {
		log.Fatalf("invocation assembler: %v", err)
	}

	revAssembler, err := pipeline.NewRevocationAssembler(pipeline.RevocationConfig{
		DocumentLoader:    rootcap.DocumentLoaderFunc(missingDocumentLoader),
		ExpectedHost:      host,
		GetRootController: getRootController,
		GetVerifier:       getVerifier,
		SuiteFactory:      suiteFactory,
	})
	if err != nil {
		log.Fatalf("revocation assembler: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle(documentsPath, invAssembler.Wrap(http.HandlerFunc(handleDocuments)))
	mux.Handle(documentsPath+"/revocations/", revAssembler.Wrap(http.HandlerFunc(handleRevocation)))

	fmt.Printf("Mounted invocation pipeline on %s\n", documentsPath)
	fmt.Printf("Mounted revocation pipeline on %s/revocations/{id}\n", documentsPath)
	fmt.Println("Listening on https://" + host)

	log.Fatal(http.ListenAndServe(host, mux))
}

func handleDocuments(w http.ResponseWriter, r *http.Request) {
	result, ok := pipeline.InvocationResultFromContext(r.Context())
	if !ok {
		http.Error(w, "missing invocation result", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json")
	fmt.Fprintf(w, `{"controller":%q}`, result.Controller)
}

func handleRevocation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "application/json")
	fmt.Fprint(w, `{"message":"revoked"}`)
}

func missingDocumentLoader(ctx context.Context, url string) (rootcap.Document, error) {
	return rootcap.Document{}, fmt.Errorf("no non-root capability documents in this example: %s", url)
}
