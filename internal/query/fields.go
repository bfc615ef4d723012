/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package query

import "strings"

// FieldKind is the closed set of queryable track attributes. Adding a field
// means extending this enum and every switch over it.
type FieldKind int

const (
	FieldArtist FieldKind = iota
	FieldAlbum
	FieldYear
	FieldDuration
)

// String returns the lower-case field name as written in queries.
func (f FieldKind) String() string {
	switch f {
	case FieldArtist:
		return "artist"
	case FieldAlbum:
		return "album"
	case FieldYear:
		return "year"
	case FieldDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// Ordinal reports whether the field supports comparison operators.
func (f FieldKind) Ordinal() bool {
	return f == FieldYear || f == FieldDuration
}

// ParseFieldName resolves a case-insensitive identifier to a field kind.
func ParseFieldName(name string) (FieldKind, bool) {
	switch strings.ToLower(name) {
	case "artist":
		return FieldArtist, true
	case "album":
		return FieldAlbum, true
	case "year":
		return FieldYear, true
	case "duration":
		return FieldDuration, true
	}
	return 0, false
}

// CompareOp is a comparison operator on an ordinal field value.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpGt
	OpLt
	OpGte
	OpLte
)

// String returns the operator as written in queries.
func (op CompareOp) String() string {
	switch op {
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// scanCompareOp consumes an optional comparison operator at position i and
// returns the operator plus the next offset. Two-character operators are
// checked before their single-character prefixes.
func scanCompareOp(s string, i int) (CompareOp, int) {
	if i+1 < len(s) {
		switch s[i : i+2] {
		case ">=":
			return OpGte, i + 2
		case "<=":
			return OpLte, i + 2
		}
	}
	if i < len(s) {
		switch s[i] {
		case '>':
			return OpGt, i + 1
		case '<':
			return OpLt, i + 1
		case '=':
			return OpEq, i + 1
		}
	}
	return OpEq, i
}

// FieldSearch is a resolved field constraint extracted from a parsed query.
// Op is only meaningful for ordinal fields; textual fields ignore it.
type FieldSearch struct {
	Field FieldKind
	Value string
	Op    CompareOp
}
