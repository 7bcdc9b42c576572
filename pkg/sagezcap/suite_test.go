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
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/sage-x-project/sage/pkg/agent/did"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcap-authz/zcap-authz-go/zcap"
)

type mockKeySelector struct {
	pubKey  crypto.PublicKey
	keyType did.KeyType
	err     error
}

func (s *mockKeySelector) SelectKey(ctx context.Context, agentDID did.AgentDID, protocol string) (crypto.PublicKey, did.KeyType, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.pubKey, s.keyType, nil
}

func signedDelegatedCapability(t *testing.T, controller string, priv ed25519.PrivateKey) *zcap.Capability {
	t.Helper()
	c := &zcap.Capability{
		ID:               "https://example.test/caps/1",
		InvocationTarget: "https://example.test/documents",
		ParentCapability: zcap.RootCapabilityID("https://example.test/documents"),
		Proof: &zcap.Proof{
			Type:                "Ed25519Signature2020",
			Created:             time.Now().Add(-time.Minute),
			VerificationMethod:  controller + "#key-1",
			ProofPurpose:        "capabilityDelegation",
			CapabilityChain:     []string{zcap.RootCapabilityID("https://example.test/documents")},
		},
	}
	signingBytes, err := canonicalizeForProof(c)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, signingBytes)
	c.Proof.ProofValue = base64.StdEncoding.EncodeToString(sig)
	return c
}

func TestDIDSuiteVerifiesValidEd25519Proof(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	controller := "did:sage:ethereum:0xabc"
	capability := signedDelegatedCapability(t, controller, priv)

	suite := NewDIDSuite(&mockKeySelector{pubKey: pub, keyType: did.KeyTypeEd25519})
	ok, err := suite.VerifyCapabilityProof(context.Background(), capability, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDIDSuiteRejectsTamperedCapability(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	controller := "did:sage:ethereum:0xabc"
	capability := signedDelegatedCapability(t, controller, priv)
	capability.InvocationTarget = "https://example.test/other"

	suite := NewDIDSuite(&mockKeySelector{pubKey: pub, keyType: did.KeyTypeEd25519})
	ok, err := suite.VerifyCapabilityProof(context.Background(), capability, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDIDSuiteRequiresProof(t *testing.T) {
	suite := NewDIDSuite(&mockKeySelector{})
	_, err := suite.VerifyCapabilityProof(context.Background(), &zcap.Capability{ID: "x"}, nil)
	require.Error(t, err)
}

func TestDIDSuiteRejectsMalformedVerificationMethod(t *testing.T) {
	capability := &zcap.Capability{
		ID: "https://example.test/caps/1",
		Proof: &zcap.Proof{
			VerificationMethod: "did:sage:ethereum:0xabc",
		},
	}
	suite := NewDIDSuite(&mockKeySelector{})
	_, err := suite.VerifyCapabilityProof(context.Background(), capability, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verificationMethod")
}

func TestDIDSuitePropagatesKeySelectorError(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_ = pub

	capability := signedDelegatedCapability(t, "did:sage:ethereum:0xabc", priv)
	suite := NewDIDSuite(&mockKeySelector{err: errors.New("registry unreachable")})

	_, err = suite.VerifyCapabilityProof(context.Background(), capability, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry unreachable")
}
