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

package httpsig

import "encoding/base64"

// decodeSignature accepts both standard and URL-safe base64, with or
// without padding, since different signer implementations in the wild
// disagree on which variant to emit.
func decodeSignature(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// EncodeSignature is the encoding counterpart used by test signers and
// adapters constructing an authorization header.
func EncodeSignature(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
