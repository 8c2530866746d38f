// Package search is the default free-text search over a station file.
package search

import (
	"sort"
	"strings"

	"github.com/voyagen/stationvault/internal/models"
	"github.com/voyagen/stationvault/internal/source"
)

// DefaultLimit caps results when Substring.Limit is zero.
const DefaultLimit = 50

// Match ranks, best first.
const (
	rankExact = iota
	rankPrefix
	rankWord
	rankContains
	noMatch
)

// Substring matches a term case-insensitively against station id, call sign
// and name. Results are ordered exact match, prefix, word prefix, substring,
// and then by position in the file.
type Substring struct {
	Limit int
}

// New returns a Substring searcher with the given result cap (0 = DefaultLimit).
func New(limit int) *Substring {
	return &Substring{Limit: limit}
}

type hit struct {
	st   models.Station
	rank int
	pos  int
}

// Search scans path and returns the ranked matches. An empty term matches
// nothing.
func (s *Substring) Search(path, term string) ([]models.Station, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []models.Station{}, nil
	}
	var hits []hit
	pos := 0
	err := source.Each(path, func(st models.Station) bool {
		if r := rankStation(&st, term); r != noMatch {
			hits = append(hits, hit{st: st, rank: r, pos: pos})
		}
		pos++
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].pos < hits[j].pos
	})

	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]models.Station, len(hits))
	for i := range hits {
		out[i] = hits[i].st
	}
	return out, nil
}

// rankStation returns the best rank of term over the searchable fields.
func rankStation(st *models.Station, term string) int {
	best := noMatch
	for _, field := range []string{st.StationID, st.CallSign, st.Name} {
		if r := rankField(strings.ToLower(field), term); r < best {
			best = r
		}
	}
	return best
}

func rankField(field, term string) int {
	switch {
	case field == "":
		return noMatch
	case field == term:
		return rankExact
	case strings.HasPrefix(field, term):
		return rankPrefix
	}
	for _, w := range strings.Fields(field) {
		if strings.HasPrefix(w, term) {
			return rankWord
		}
	}
	if strings.Contains(field, term) {
		return rankContains
	}
	return noMatch
}
