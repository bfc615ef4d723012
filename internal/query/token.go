/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package query compiles the advanced search query language used across the
// aggregator: boolean operators, parenthesized grouping, quoted phrases, and
// field constraints over a fixed set of track attributes.
package query

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenTerm TokenKind = iota
	TokenQuoted
	TokenField
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
)

// String returns the wire name of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenTerm:
		return "term"
	case TokenQuoted:
		return "quoted"
	case TokenField:
		return "field"
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenNot:
		return "not"
	case TokenLParen:
		return "lparen"
	case TokenRParen:
		return "rparen"
	default:
		return "unknown"
	}
}

// Token is a single lexical unit of a query. Start and End are byte offsets
// into the source string for diagnostics. Field and Op are only meaningful
// when Kind is TokenField; Text holds the field value in that case.
type Token struct {
	Kind  TokenKind
	Text  string
	Field FieldKind
	Op    CompareOp
	Start int
	End   int
}
