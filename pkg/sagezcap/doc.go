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

// Package sagezcap wires github.com/sage-x-project/sage's DID types, plus
// stdlib Ed25519/ECDSA signature checks over capability documents, into the
// core pipeline's crypto-agnostic interfaces (delegation.Suite, rootcap.DocumentLoader,
// rootcap.GetRootController). None of it is required to use the pipeline —
// a host with its own key management can implement those interfaces
// directly — but it gives a host willing to accept did:sage:* controllers
// and Ed25519/ECDSA capability proofs a batteries-included starting point,
// the same role the core repo's default DID verifier and key selector play
// for A2A request authentication.
package sagezcap
