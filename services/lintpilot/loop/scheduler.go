// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import (
	"sort"

	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
)

// DefaultMaxSkips is the number of fruitless visits a pair may absorb
// before it is excluded.
const DefaultMaxSkips = 2

// Pair is the unit of automated scheduling.
type Pair struct {
	File string `json:"file"`
	Rule string `json:"rule"`
}

// Scheduler picks the next (file, rule) pair for automated mode.
//
// Description:
//
//	A visit that applies nothing counts as a skip. A pair whose skip count
//	exceeds the budget is excluded. Among eligible pairs the one with the
//	fewest skips wins, then the one visited least recently, then the first
//	in item and file order.
//
// Thread Safety: Not safe for concurrent use.
type Scheduler struct {
	maxSkips  int
	skips     map[Pair]int
	lastVisit map[Pair]int
	clock     int
}

// NewScheduler creates a Scheduler. A negative budget uses DefaultMaxSkips.
func NewScheduler(maxSkips int) *Scheduler {
	if maxSkips < 0 {
		maxSkips = DefaultMaxSkips
	}
	return &Scheduler{
		maxSkips:  maxSkips,
		skips:     make(map[Pair]int),
		lastVisit: make(map[Pair]int),
	}
}

type candidate struct {
	pair  Pair
	index int
	order int
}

// Next selects among items, returning Exhausted when every pair is excluded.
func (s *Scheduler) Next(items []aggregate.WorkItem) Selection {
	var candidates []candidate
	for i, item := range items {
		if item.IsParseError() {
			continue
		}
		for _, file := range item.Files() {
			p := Pair{File: file, Rule: item.Rule()}
			if s.Excluded(p) {
				continue
			}
			candidates = append(candidates, candidate{pair: p, index: i, order: len(candidates)})
		}
	}
	if len(candidates) == 0 {
		return Selection{Exhausted: true}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if sa, sb := s.skips[ca.pair], s.skips[cb.pair]; sa != sb {
			return sa < sb
		}
		va, oka := s.lastVisit[ca.pair]
		vb, okb := s.lastVisit[cb.pair]
		if oka != okb {
			return !oka
		}
		if va != vb {
			return va < vb
		}
		return ca.order < cb.order
	})

	chosen := candidates[0]
	s.clock++
	s.lastVisit[chosen.pair] = s.clock
	return Selection{Index: chosen.index, File: chosen.pair.File}
}

// Record notes the outcome of a visit.
func (s *Scheduler) Record(p Pair, applied bool) {
	if !applied {
		s.skips[p]++
	}
}

// Excluded reports whether p has exhausted its budget.
func (s *Scheduler) Excluded(p Pair) bool {
	return s.skips[p] > s.maxSkips
}

// ExcludedPairs returns every excluded pair, sorted.
func (s *Scheduler) ExcludedPairs() []Pair {
	var out []Pair
	for p := range s.skips {
		if s.Excluded(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}
