/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package match evaluates parsed queries against in-memory tracks.
//
// AND and OR carry no precedence relative to each other: operands combine
// strictly left-to-right in token order, and parentheses are the only way to
// control evaluation order. That is a user-visible contract of the query
// language, not an implementation detail.
package match

import (
	"strconv"
	"strings"

	"github.com/friendsincode/bragi/internal/models"
	"github.com/friendsincode/bragi/internal/query"
)

// durationTolerance is the slack applied to duration equality checks.
// User-entered durations are rarely frame-exact.
const durationTolerance = 5

// Matches reports whether a track satisfies a parsed query. A query with
// parse errors matches nothing (fail-closed); an empty query matches
// everything.
func Matches(rec models.Track, pq query.ParsedQuery) bool {
	if len(pq.Errors) > 0 {
		return false
	}
	if len(pq.Tokens) == 0 {
		return true
	}

	if !pq.HasOperators && !pq.HasGrouping {
		return matchesSimple(rec, pq)
	}

	result, _ := evalExpr(rec, pq, 0)
	return result
}

// Filter selects the tracks matching a parsed query. Input order is
// preserved and input tracks are never mutated.
func Filter(recs []models.Track, pq query.ParsedQuery) []models.Track {
	var out []models.Track
	for _, rec := range recs {
		if Matches(rec, pq) {
			out = append(out, rec)
		}
	}
	return out
}

// matchesSimple is the fast path for queries without operators or grouping:
// every field constraint and every bare term must hold (implicit AND).
func matchesSimple(rec models.Track, pq query.ParsedQuery) bool {
	haystack := searchText(rec)
	for _, tok := range pq.Tokens {
		switch tok.Kind {
		case query.TokenTerm:
			if !matchTerm(haystack, tok.Text) {
				return false
			}
		case query.TokenQuoted:
			if !strings.Contains(haystack, strings.ToLower(tok.Text)) {
				return false
			}
		case query.TokenField:
			if !matchField(rec, query.FieldSearch{Field: tok.Field, Value: tok.Text, Op: tok.Op}) {
				return false
			}
		}
	}
	return true
}

// evalExpr evaluates tokens from idx until a closing paren or end of input,
// returning the accumulated result and the index just past the consumed
// range. The cursor is threaded through return values so the evaluation is
// reentrant per sub-range.
func evalExpr(rec models.Track, pq query.ParsedQuery, idx int) (bool, int) {
	result := false
	first := true
	pending := query.TokenAnd
	negate := false

	combine := func(val bool) {
		if negate {
			val = !val
			negate = false
		}
		if first {
			result = val
			first = false
		} else if pending == query.TokenOr {
			result = result || val
		} else {
			result = result && val
		}
		pending = query.TokenAnd
	}

	for idx < len(pq.Tokens) {
		tok := pq.Tokens[idx]
		switch tok.Kind {
		case query.TokenRParen:
			return result, idx + 1
		case query.TokenAnd:
			pending = query.TokenAnd
			idx++
		case query.TokenOr:
			pending = query.TokenOr
			idx++
		case query.TokenNot:
			negate = true
			idx++
		case query.TokenLParen:
			val, next := evalExpr(rec, pq, idx+1)
			combine(val)
			idx = next
		default:
			combine(evalToken(rec, pq, tok))
			idx++
		}
	}
	return result, idx
}

func evalToken(rec models.Track, pq query.ParsedQuery, tok query.Token) bool {
	switch tok.Kind {
	case query.TokenTerm:
		return matchTerm(searchText(rec), tok.Text)
	case query.TokenQuoted:
		return strings.Contains(searchText(rec), strings.ToLower(tok.Text))
	case query.TokenField:
		// Resolve the token back to its extracted FieldSearch entry. The
		// lookup cannot fail for well-formed parser output; an unresolved
		// token evaluates to false.
		for _, fs := range pq.Fields {
			if fs.Field == tok.Field && fs.Op == tok.Op && fs.Value == tok.Text {
				return matchField(rec, fs)
			}
		}
		return false
	default:
		return false
	}
}

// matchTerm requires every whitespace-separated word of the term to be a
// substring of the haystack.
func matchTerm(haystack, term string) bool {
	for _, word := range strings.Fields(strings.ToLower(term)) {
		if !strings.Contains(haystack, word) {
			return false
		}
	}
	return true
}

// matchField applies one field constraint to a track.
func matchField(rec models.Track, fs query.FieldSearch) bool {
	switch fs.Field {
	case query.FieldArtist:
		want := strings.ToLower(fs.Value)
		for _, name := range rec.ArtistNames {
			if strings.Contains(strings.ToLower(name), want) {
				return true
			}
		}
		return false
	case query.FieldAlbum:
		if rec.AlbumName == "" {
			return false
		}
		return strings.Contains(strings.ToLower(rec.AlbumName), strings.ToLower(fs.Value))
	case query.FieldYear:
		target, err := strconv.Atoi(fs.Value)
		if err != nil || rec.ReleaseYear == 0 {
			return false
		}
		return compareInt(rec.ReleaseYear, target, fs.Op)
	case query.FieldDuration:
		target, err := strconv.Atoi(fs.Value)
		if err != nil || rec.DurationSeconds == 0 {
			return false
		}
		if fs.Op == query.OpEq {
			diff := rec.DurationSeconds - target
			if diff < 0 {
				diff = -diff
			}
			return diff < durationTolerance
		}
		return compareInt(rec.DurationSeconds, target, fs.Op)
	default:
		return false
	}
}

func compareInt(have, want int, op query.CompareOp) bool {
	switch op {
	case query.OpGt:
		return have > want
	case query.OpLt:
		return have < want
	case query.OpGte:
		return have >= want
	case query.OpLte:
		return have <= want
	default:
		return have == want
	}
}

// searchText builds the lower-cased haystack used for term and phrase
// matching: track name, all artist names, and the album name. Terms match
// against the concatenation as a whole rather than per field.
func searchText(rec models.Track) string {
	parts := make([]string, 0, len(rec.ArtistNames)+2)
	parts = append(parts, rec.Name)
	parts = append(parts, rec.ArtistNames...)
	if rec.AlbumName != "" {
		parts = append(parts, rec.AlbumName)
	}
	return strings.ToLower(strings.Join(parts, " "))
}
