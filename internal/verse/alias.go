package verse

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"voice-scripture-service/internal/fault"
)

// AliasEntry is one accepted spoken form of a book name.
type AliasEntry struct {
	// Alias as written in the table.
	Alias string
	// Norm is the space-stripped, lowercased form used for matching.
	Norm string
	// RuneLen of Norm, precomputed for window scans.
	RuneLen int
	// BookIndex into canonical order.
	BookIndex int
	// Book is the canonical name.
	Book string
}

// AliasCatalog is the immutable lookup structure for spoken book
// names. Built once at corpus load; safe for concurrent reads.
type AliasCatalog struct {
	// entries sorted longest-first, then by canonical book order.
	entries []AliasEntry
	byNorm  map[string]int // norm → book index
}

// Edit-distance tolerance by alias length. Two-rune abbreviations
// like 창세 or 요일 must match exactly or they absorb everything.
const (
	shortAliasRunes = 2
	midAliasRunes   = 5
	midTolerance    = 1
	longTolerance   = 2
)

// MaxDistance returns the edit-distance tolerance for an alias of the
// given rune length.
func MaxDistance(runeLen int) int {
	switch {
	case runeLen <= shortAliasRunes:
		return 0
	case runeLen <= midAliasRunes:
		return midTolerance
	default:
		return longTolerance
	}
}

// NormalizeName strips spaces and lowercases for alias comparison.
func NormalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

func newAliasCatalog() (*AliasCatalog, error) {
	byNorm := make(map[string]int, len(bookAliases)+len(bookNames))
	add := func(alias string, idx int) error {
		norm := NormalizeName(alias)
		if prev, ok := byNorm[norm]; ok && prev != idx {
			return fault.New(fault.KindData, "alias %q maps to both %s and %s", alias, bookNames[prev], bookNames[idx])
		}
		byNorm[norm] = idx
		return nil
	}

	for i, name := range bookNames {
		if err := add(name, i); err != nil {
			return nil, err
		}
	}
	for alias, idx := range bookAliases {
		if err := add(alias, idx); err != nil {
			return nil, err
		}
	}

	entries := make([]AliasEntry, 0, len(byNorm))
	for norm, idx := range byNorm {
		entries = append(entries, AliasEntry{
			Alias:     norm,
			Norm:      norm,
			RuneLen:   utf8.RuneCountInString(norm),
			BookIndex: idx,
			Book:      bookNames[idx],
		})
	}
	// Longest first, then canonical order, then lexical. The order is
	// part of the contract: it makes scans deterministic.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RuneLen != entries[j].RuneLen {
			return entries[i].RuneLen > entries[j].RuneLen
		}
		if entries[i].BookIndex != entries[j].BookIndex {
			return entries[i].BookIndex < entries[j].BookIndex
		}
		return entries[i].Norm < entries[j].Norm
	})

	return &AliasCatalog{entries: entries, byNorm: byNorm}, nil
}

// Entries returns the alias entries, longest first.
// Callers must not modify the returned slice.
func (a *AliasCatalog) Entries() []AliasEntry { return a.entries }

// Resolve maps a spoken book name to its canonical form.
// Exact (space-insensitive) matches win; otherwise the closest alias
// within edit-distance tolerance is used. If two different books tie
// at the minimal distance the input is ambiguous.
func (a *AliasCatalog) Resolve(name string) (string, error) {
	norm := NormalizeName(name)
	if norm == "" {
		return "", fault.New(fault.KindUnknownBook, "empty book name")
	}
	if idx, ok := a.byNorm[norm]; ok {
		return bookNames[idx], nil
	}

	bestDist := -1
	bestBook := -1
	ambiguous := false
	for _, e := range a.entries {
		tol := MaxDistance(e.RuneLen)
		if tol == 0 {
			continue // exact-only aliases were handled above
		}
		d := levenshtein.ComputeDistance(norm, e.Norm)
		if d > tol {
			continue
		}
		switch {
		case bestDist == -1 || d < bestDist:
			bestDist = d
			bestBook = e.BookIndex
			ambiguous = false
		case d == bestDist && e.BookIndex != bestBook:
			ambiguous = true
		}
	}

	if bestBook == -1 {
		return "", fault.New(fault.KindUnknownBook, "no book matches %q", name)
	}
	if ambiguous {
		return "", fault.New(fault.KindAmbiguous, "%q matches more than one book at distance %d", name, bestDist)
	}
	return bookNames[bestBook], nil
}

// BookName returns the canonical name for a corpus index.
func BookName(idx int) string { return bookNames[idx] }
