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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sage-x-project/sage/pkg/agent/did"

	"github.com/zcap-authz/zcap-authz-go/delegation"
	"github.com/zcap-authz/zcap-authz-go/rootcap"
	"github.com/zcap-authz/zcap-authz-go/zcap"
)

// KeySelector resolves the public key a did:sage:* controller signs with,
// picking a key type by protocol preference when the controller has more
// than one verified key on chain.
type KeySelector interface {
	SelectKey(ctx context.Context, agentDID did.AgentDID, protocol string) (crypto.PublicKey, did.KeyType, error)
}

// DIDSuite implements delegation.Suite against did:sage:* controllers: it
// resolves the delegation proof's verificationMethod to a public key via
// KeySelector, then verifies proofValue against the capability document
// with everything but proofValue itself canonicalized as JSON.
type DIDSuite struct {
	selector KeySelector
}

// NewDIDSuite builds a DIDSuite backed by selector.
func NewDIDSuite(selector KeySelector) *DIDSuite {
	return &DIDSuite{selector: selector}
}

// VerifyCapabilityProof implements delegation.Suite.
func (s *DIDSuite) VerifyCapabilityProof(ctx context.Context, capability *zcap.Capability, loader rootcap.DocumentLoader) (bool, error) {
	if capability.Proof == nil {
		return false, errors.New("sagezcap: capability has no proof to verify")
	}
	agentDID, _, err := splitVerificationMethod(capability.Proof.VerificationMethod)
	if err != nil {
		return false, err
	}
	pubKey, keyType, err := s.selector.SelectKey(ctx, agentDID, "")
	if err != nil {
		return false, fmt.Errorf("sagezcap: resolve key for %s: %w", agentDID, err)
	}
	sigBytes, err := base64.StdEncoding.DecodeString(capability.Proof.ProofValue)
	if err != nil {
		return false, fmt.Errorf("sagezcap: decode proofValue: %w", err)
	}
	signingBytes, err := canonicalizeForProof(capability)
	if err != nil {
		return false, fmt.Errorf("sagezcap: canonicalize capability: %w", err)
	}
	return verifyWithKeyType(pubKey, keyType, signingBytes, sigBytes)
}

// NewSuiteFactory returns a delegation.SuiteFactory producing a single
// DIDSuite backed by selector. Hosts that trust more than one proof suite
// compose additional Suite implementations of their own alongside it.
func NewSuiteFactory(selector KeySelector) delegation.SuiteFactory {
	return func(req *http.Request) ([]delegation.Suite, error) {
		return []delegation.Suite{NewDIDSuite(selector)}, nil
	}
}

// splitVerificationMethod splits "did:sage:...#key-1" into the controller
// DID and the fragment identifying the specific key.
func splitVerificationMethod(verificationMethod string) (did.AgentDID, string, error) {
	controller, fragment, found := strings.Cut(verificationMethod, "#")
	if !found || controller == "" {
		return "", "", fmt.Errorf("sagezcap: verificationMethod %q is not of the form <did>#<keyId>", verificationMethod)
	}
	return did.AgentDID(controller), fragment, nil
}

// canonicalizeForProof marshals capability with its proofValue cleared, the
// same bytes a signer must have hashed and signed to produce proofValue.
func canonicalizeForProof(capability *zcap.Capability) ([]byte, error) {
	unsigned := *capability
	proofCopy := *capability.Proof
	proofCopy.ProofValue = ""
	unsigned.Proof = &proofCopy
	return json.Marshal(&unsigned)
}

func verifyWithKeyType(pubKey crypto.PublicKey, keyType did.KeyType, signingBytes, sig []byte) (bool, error) {
	switch keyType {
	case did.KeyTypeEd25519:
		key, ok := pubKey.(ed25519.PublicKey)
		if !ok {
			return false, errors.New("sagezcap: selector returned a non-ed25519 key for an ed25519 key type")
		}
		return ed25519.Verify(key, signingBytes, sig), nil
	case did.KeyTypeECDSA:
		key, ok := pubKey.(*ecdsa.PublicKey)
		if !ok {
			return false, errors.New("sagezcap: selector returned a non-ecdsa key for an ecdsa key type")
		}
		digest := sha256.Sum256(signingBytes)
		return ecdsa.VerifyASN1(key, digest[:], sig), nil
	default:
		return false, fmt.Errorf("sagezcap: unsupported key type %v", keyType)
	}
}
