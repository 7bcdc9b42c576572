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

package zcap

import "encoding/json"

// ControllerSet holds one or more controller identifiers. It marshals back
// to null when empty, to a bare string when it holds exactly one id and to
// a JSON array otherwise, matching the "one or many" shape the wire format uses for
// `controller` (a sum type instead of runtime
// polymorphism). Order is insertion order; membership checks and the "any
// member authorizes" invocation rule share one code path regardless of size.
type ControllerSet struct {
	ids []string
}

// NewControllerSet builds a ControllerSet from one or more ids, deduplicating
// while preserving first-seen order.
func NewControllerSet(ids ...string) ControllerSet {
	var cs ControllerSet
	for _, id := range ids {
		cs.Add(id)
	}
	return cs
}

// Add appends id if it is not already a member.
func (cs *ControllerSet) Add(id string) {
	for _, existing := range cs.ids {
		if existing == id {
			return
		}
	}
	cs.ids = append(cs.ids, id)
}

// Union returns a new ControllerSet containing cs's ids followed by other's,
// deduplicated, insertion order preserved — used to compute the transitive
// controller set of a delegation chain).
func (cs ControllerSet) Union(other ControllerSet) ControllerSet {
	out := NewControllerSet(cs.ids...)
	for _, id := range other.ids {
		out.Add(id)
	}
	return out
}

// Contains reports whether id is a member of the set.
func (cs ControllerSet) Contains(id string) bool {
	for _, existing := range cs.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// IDs returns the member ids in insertion order. The returned slice must not
// be mutated by the caller.
func (cs ControllerSet) IDs() []string {
	return cs.ids
}

// Empty reports whether the set has no members.
func (cs ControllerSet) Empty() bool {
	return len(cs.ids) == 0
}

func (cs ControllerSet) MarshalJSON() ([]byte, error) {
	switch len(cs.ids) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(cs.ids[0])
	default:
		return json.Marshal(cs.ids)
	}
}

func (cs *ControllerSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*cs = NewControllerSet(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*cs = NewControllerSet(many...)
	return nil
}

// ActionSet holds the set of actions a capability grants. An empty ActionSet
// grants every action.
type ActionSet struct {
	actions []string
}

// NewActionSet builds an ActionSet from the given actions.
func NewActionSet(actions ...string) ActionSet {
	return ActionSet{actions: append([]string(nil), actions...)}
}

// Allows reports whether action is granted by the set.
func (as ActionSet) Allows(action string) bool {
	if len(as.actions) == 0 {
		return true
	}
	for _, a := range as.actions {
		if a == action {
			return true
		}
	}
	return false
}

func (as ActionSet) MarshalJSON() ([]byte, error) {
	switch len(as.actions) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(as.actions[0])
	default:
		return json.Marshal(as.actions)
	}
}

func (as *ActionSet) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*as = ActionSet{}
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*as = NewActionSet(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*as = NewActionSet(many...)
	return nil
}
