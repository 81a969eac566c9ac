//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of Sitrep.
//
// Sitrep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Sitrep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Sitrep. If not, see https://www.gnu.org/licenses/.

package aggregate

// orderedSet is a set of strings that remembers first insertion order.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet(initial ...string) *orderedSet {
	s := &orderedSet{seen: make(map[string]struct{}, len(initial))}
	s.add(initial...)
	return s
}

func (s *orderedSet) add(items ...string) {
	for _, item := range items {
		if _, ok := s.seen[item]; ok {
			continue
		}
		s.seen[item] = struct{}{}
		s.items = append(s.items, item)
	}
}

func (s *orderedSet) list() []string {
	return append([]string(nil), s.items...)
}
