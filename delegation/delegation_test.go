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

package delegation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcap"
	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// alwaysValidSuite treats every proof as valid, standing in for the
// externally-supplied cryptographic suite delegates entirely to
// the host.
type alwaysValidSuite struct{}

func (alwaysValidSuite) VerifyCapabilityProof(ctx context.Context, capability *zcap.Capability, loader rootcap.DocumentLoader) (bool, error) {
	return true, nil
}

type neverValidSuite struct{}

func (neverValidSuite) VerifyCapabilityProof(ctx context.Context, capability *zcap.Capability, loader rootcap.DocumentLoader) (bool, error) {
	return false, nil
}

func staticLoader(docs map[string]*zcap.Capability) rootcap.DocumentLoader {
	return rootcap.DocumentLoaderFunc(func(ctx context.Context, url string) (rootcap.Document, error) {
		c, ok := docs[url]
		if !ok {
			return rootcap.Document{}, assert.AnError
		}
		return rootcap.Document{DocumentURL: url, Document: c}, nil
	})
}

func chainFixture() (root, delegate *zcap.Capability, docs map[string]*zcap.Capability) {
	target := "https://localhost:8443/service-objects/123"
	rootID := zcap.RootCapabilityID(target)
	root = zcap.NewRootCapability(target, zcap.NewControllerSet("did:key:zAdmin"))
	delegate = &zcap.Capability{
		ID:               "https://localhost:8443/caps/delegated-1",
		InvocationTarget: target,
		Controller:       zcap.NewControllerSet("did:key:zDelegate"),
		ParentCapability: rootID,
		Proof: &zcap.Proof{
			Type:                "Ed25519Signature2020",
			Created:             time.Now().Add(-time.Minute),
			VerificationMethod:  "did:key:zAdmin#zAdmin",
			ProofPurpose:        "capabilityDelegation",
			CapabilityChain:     []string{rootID},
		},
	}
	docs = map[string]*zcap.Capability{rootID: root}
	return
}

func TestVerifyHappyPath(t *testing.T) {
	root, delegate, docs := chainFixture()
	loader := staticLoader(docs)

	result, err := Verify(context.Background(), delegate, loader, []Suite{alwaysValidSuite{}}, Policy{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "did:key:zAdmin#zAdmin", result.Delegator)
	require.Len(t, result.Chain, 2)
	assert.Equal(t, root.ID, result.Chain[0].ID)
	assert.Equal(t, delegate.ID, result.Chain[1].ID)
	assert.True(t, result.ChainControllers.Contains("did:key:zAdmin"))
	assert.True(t, result.ChainControllers.Contains("did:key:zDelegate"))
}

func TestVerifyRootCannotBeRevoked(t *testing.T) {
	root, _, docs := chainFixture()
	loader := staticLoader(docs)

	_, err := Verify(context.Background(), root, loader, []Suite{alwaysValidSuite{}}, Policy{}, nil)
	require.Error(t, err)
	var zerr *zcaperr.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zcaperr.KindRootNotRevocable, zerr.Kind)
}

func TestVerifyInvalidProofRejected(t *testing.T) {
	_, delegate, docs := chainFixture()
	loader := staticLoader(docs)

	_, err := Verify(context.Background(), delegate, loader, []Suite{neverValidSuite{}}, Policy{}, nil)
	require.Error(t, err)
	var zerr *zcaperr.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zcaperr.KindInvalidDelegation, zerr.Kind)
}

func TestVerifyMissingProofRejected(t *testing.T) {
	_, delegate, docs := chainFixture()
	delegate.Proof = nil
	loader := staticLoader(docs)

	_, err := Verify(context.Background(), delegate, loader, []Suite{alwaysValidSuite{}}, Policy{}, nil)
	require.Error(t, err)
	var zerr *zcaperr.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zcaperr.KindInvalidDelegation, zerr.Kind)
}

func TestVerifyDetectsCycle(t *testing.T) {
	target := "https://localhost:8443/service-objects/123"
	a := &zcap.Capability{
		ID:               "https://localhost:8443/caps/a",
		InvocationTarget: target,
		Controller:       zcap.NewControllerSet("did:key:zA"),
		ParentCapability: "https://localhost:8443/caps/b",
		Proof:            &zcap.Proof{Type: "Ed25519Signature2020", Created: time.Now(), VerificationMethod: "did:key:zB#zB"},
	}
	b := &zcap.Capability{
		ID:               "https://localhost:8443/caps/b",
		InvocationTarget: target,
		Controller:       zcap.NewControllerSet("did:key:zB"),
		ParentCapability: a.ID,
		Proof:            &zcap.Proof{Type: "Ed25519Signature2020", Created: time.Now(), VerificationMethod: "did:key:zA#zA"},
	}
	loader := staticLoader(map[string]*zcap.Capability{a.ID: a, b.ID: b})

	_, err := Verify(context.Background(), a, loader, []Suite{alwaysValidSuite{}}, Policy{}, nil)
	require.Error(t, err)
	var zerr *zcaperr.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zcaperr.KindInvalidDelegation, zerr.Kind)
}

func TestVerifyExceedsMaxChainLength(t *testing.T) {
	_, delegate, docs := chainFixture()
	loader := staticLoader(docs)

	_, err := Verify(context.Background(), delegate, loader, []Suite{alwaysValidSuite{}}, Policy{MaxChainLength: 1}, nil)
	require.Error(t, err)
	var zerr *zcaperr.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zcaperr.KindInvalidDelegation, zerr.Kind)
}

func TestVerifyExceedsMaxDelegationTTL(t *testing.T) {
	_, delegate, docs := chainFixture()
	expires := delegate.Proof.Created.Add(time.Hour)
	delegate.Expires = &expires
	loader := staticLoader(docs)

	_, err := Verify(context.Background(), delegate, loader, []Suite{alwaysValidSuite{}}, Policy{MaxDelegationTTL: time.Minute}, nil)
	require.Error(t, err)
	var zerr *zcaperr.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zcaperr.KindInvalidDelegation, zerr.Kind)
}

func TestWalkChainRejectsSiblingTargetAsAttenuation(t *testing.T) {
	rootTarget := "https://localhost:8443/documents"
	rootID := zcap.RootCapabilityID(rootTarget)
	root := zcap.NewRootCapability(rootTarget, zcap.NewControllerSet("did:key:zAdmin"))
	// "documentsSecret" is a distinct resource, not a sub-path of "documents".
	sibling := &zcap.Capability{
		ID:               "https://localhost:8443/caps/sibling",
		InvocationTarget: "https://localhost:8443/documentsSecret",
		Controller:       zcap.NewControllerSet("did:key:zDelegate"),
		ParentCapability: rootID,
		Proof: &zcap.Proof{
			Type:               "Ed25519Signature2020",
			Created:            time.Now().Add(-time.Minute),
			VerificationMethod: "did:key:zAdmin#zAdmin",
			ProofPurpose:       "capabilityDelegation",
			CapabilityChain:    []string{rootID},
		},
	}
	loader := staticLoader(map[string]*zcap.Capability{rootID: root})

	_, err := WalkChain(context.Background(), sibling, loader, []Suite{alwaysValidSuite{}}, Policy{AllowTargetAttenuation: true})
	require.Error(t, err)
	var zerr *zcaperr.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zcaperr.KindInvalidDelegation, zerr.Kind)
}

func TestWalkChainAcceptsPathBoundaryAttenuation(t *testing.T) {
	rootTarget := "https://localhost:8443/documents"
	rootID := zcap.RootCapabilityID(rootTarget)
	root := zcap.NewRootCapability(rootTarget, zcap.NewControllerSet("did:key:zAdmin"))
	child := &zcap.Capability{
		ID:               "https://localhost:8443/caps/child",
		InvocationTarget: "https://localhost:8443/documents/1",
		Controller:       zcap.NewControllerSet("did:key:zDelegate"),
		ParentCapability: rootID,
		Proof: &zcap.Proof{
			Type:               "Ed25519Signature2020",
			Created:            time.Now().Add(-time.Minute),
			VerificationMethod: "did:key:zAdmin#zAdmin",
			ProofPurpose:       "capabilityDelegation",
			CapabilityChain:    []string{rootID},
		},
	}
	loader := staticLoader(map[string]*zcap.Capability{rootID: root})

	chain, err := WalkChain(context.Background(), child, loader, []Suite{alwaysValidSuite{}}, Policy{AllowTargetAttenuation: true})
	require.NoError(t, err)
	require.Len(t, chain, 2)
}

func TestVerifyInspectCapabilityChainVeto(t *testing.T) {
	_, delegate, docs := chainFixture()
	loader := staticLoader(docs)

	_, err := Verify(context.Background(), delegate, loader, []Suite{alwaysValidSuite{}}, Policy{}, func(chain []string) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	var zerr *zcaperr.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zcaperr.KindInvalidDelegation, zerr.Kind)
}
