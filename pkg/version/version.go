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

// Package version provides build and dependency version information for
// zcap-authz-go.
package version

const (
	// Version is the current version of zcap-authz-go.
	Version = "0.1.0-dev"

	// HTTPSignatureScheme names the signature scheme this library parses and
	// verifies, for diagnostics and support requests.
	HTTPSignatureScheme = "draft-cavage-http-signatures"

	// SageVersion is the github.com/sage-x-project/sage version pkg/sagezcap
	// is built against.
	SageVersion = "1.3.1"
)

// Info bundles the version fields Get returns.
type Info struct {
	Version             string
	HTTPSignatureScheme string
	SageVersion         string
}

// Get returns the running build's version information.
func Get() Info {
	return Info{
		Version:             Version,
		HTTPSignatureScheme: HTTPSignatureScheme,
		SageVersion:         SageVersion,
	}
}
