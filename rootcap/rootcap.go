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

// Package rootcap synthesizes well-known root capability documents on
// demand and delegates every other lookup to a host-supplied document
// loader, matching the "resolves JSON-LD contexts, DID documents, and
// capability documents" contract of an external loader. The
// core never processes JSON-LD itself.
package rootcap

import (
	"context"
	"net/http"

	"github.com/zcap-authz/zcap-authz-go/zcap"
	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// Document is the generic result shape a document loader returns: the
// context url actually used, the document url actually fetched, and the
// document itself (a *zcap.Capability when the url names one, but the
// loader is also asked to resolve DID documents and JSON-LD contexts it
// knows nothing about the shape of).
type Document struct {
	ContextURL  string
	DocumentURL string
	Document    any
}

// DocumentLoader resolves a url to a Document. Implementations must be
// reentrant: the core invokes it concurrently across requests.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, url string) (Document, error)
}

// DocumentLoaderFunc adapts a function to a DocumentLoader.
type DocumentLoaderFunc func(ctx context.Context, url string) (Document, error)

func (f DocumentLoaderFunc) LoadDocument(ctx context.Context, url string) (Document, error) {
	return f(ctx, url)
}

// GetRootController is the host callback that names the controller(s) of a
// synthesized root capability for a given invocation target.
type GetRootController func(req *http.Request, rootCapabilityID, rootInvocationTarget string) (zcap.ControllerSet, error)

// Loader wraps a base DocumentLoader with root-capability synthesis. A
// Loader is built once per request — it borrows the request only for the
// duration of verification and must not be retained past it
// "per-request document loader wrapping").
type Loader struct {
	base              DocumentLoader
	req               *http.Request
	getRootController GetRootController
}

// New binds base, req and getRootController into a request-scoped Loader.
func New(base DocumentLoader, req *http.Request, getRootController GetRootController) *Loader {
	return &Loader{base: base, req: req, getRootController: getRootController}
}

// LoadDocument synthesizes a root capability document when url has the
// well-known root form; otherwise it delegates to the base loader
// unchanged.
func (l *Loader) LoadDocument(ctx context.Context, url string) (Document, error) {
	target, ok := zcap.ParseRootCapabilityID(url)
	if !ok {
		return l.base.LoadDocument(ctx, url)
	}

	controller, err := l.getRootController(l.req, url, target)
	if err != nil {
		return Document{}, zcaperr.Wrap(zcaperr.KindNotAuthorized, `"getRootController" failed`, err)
	}

	root := zcap.NewRootCapability(target, controller)
	return Document{
		ContextURL:  "",
		DocumentURL: url,
		Document:    root,
	}, nil
}
