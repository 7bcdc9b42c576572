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

package invocation

import (
	"strings"

	"github.com/zcap-authz/zcap-authz-go/zcaperr"
)

// Header is the decoded "capability-invocation" request header: which
// capability the caller claims to be invoking, and which action they claim
// to be performing.
type Header struct {
	Capability string
	Action     string
}

// ParseCapabilityInvocation parses a "capability-invocation" header of the
// form `zcap capability="<id>",action="<action>"`. Parameter order and the
// presence of the leading scheme token are tolerated; only "capability" is
// required.
func ParseCapabilityInvocation(raw string) (*Header, error) {
	if raw == "" {
		return nil, zcaperr.New(zcaperr.KindMalformedAuthorization, `"capability-invocation" header is missing`)
	}

	rest := raw
	if i := strings.IndexByte(raw, ' '); i >= 0 {
		rest = raw[i+1:]
	}

	fields := make(map[string]string)
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return nil, zcaperr.New(zcaperr.KindMalformedAuthorization, `"capability-invocation" header has an unparseable parameter`)
		}
		key := strings.ToLower(strings.TrimSpace(part[:eq]))
		val := strings.Trim(strings.TrimSpace(part[eq+1:]), `"`)
		fields[key] = val
	}

	capability := fields["capability"]
	if capability == "" {
		return nil, zcaperr.New(zcaperr.KindMalformedAuthorization, `"capability-invocation" header is missing "capability"`)
	}

	return &Header{Capability: capability, Action: fields["action"]}, nil
}
