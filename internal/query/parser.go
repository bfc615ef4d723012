/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package query

import "strings"

// Parse error messages. All problems found in a single pass are accumulated
// on the ParsedQuery rather than aborting at the first one.
const (
	ErrUnmatchedQuote        = "Unmatched quote"
	ErrUnmatchedClosingParen = "Unmatched closing parenthesis"
	ErrUnmatchedOpeningParen = "Unmatched opening parenthesis"
)

// ParsedQuery is the compiled form of a raw query string. A non-empty Errors
// list makes the query unmatchable: the matcher treats it as "match nothing"
// and the orchestrator skips the network call entirely.
type ParsedQuery struct {
	Tokens []Token
	Fields []FieldSearch

	HasOperators bool
	HasFields    bool
	HasQuotes    bool
	HasGrouping  bool

	Errors []string
}

// Parse compiles a raw query string. It is a total function: malformed input
// is reported through ParsedQuery.Errors, never through a panic or an error
// return. Feature flags are derived in the same pass so callers can cheaply
// decide whether post-filtering is needed at all.
func Parse(raw string) ParsedQuery {
	var pq ParsedQuery
	depth := 0
	i := 0

	for i < len(raw) {
		c := raw[i]
		switch {
		case isSpace(c):
			i++
		case c == '(':
			pq.Tokens = append(pq.Tokens, Token{Kind: TokenLParen, Text: "(", Start: i, End: i + 1})
			depth++
			i++
		case c == ')':
			if depth == 0 {
				pq.Errors = append(pq.Errors, ErrUnmatchedClosingParen)
			} else {
				depth--
			}
			pq.Tokens = append(pq.Tokens, Token{Kind: TokenRParen, Text: ")", Start: i, End: i + 1})
			i++
		case c == '"':
			text, next, ok := scanQuoted(raw, i)
			if !ok {
				pq.Errors = append(pq.Errors, ErrUnmatchedQuote)
				i = next
				continue
			}
			pq.Tokens = append(pq.Tokens, Token{Kind: TokenQuoted, Text: text, Start: i, End: next})
			i = next
		case isTermStart(c):
			i = scanWord(&pq, raw, i)
		default:
			// Stray punctuation cannot start a token; skip it silently so it
			// never blocks the rest of the query.
			i++
		}
	}

	if depth > 0 {
		pq.Errors = append(pq.Errors, ErrUnmatchedOpeningParen)
	}

	for _, tok := range pq.Tokens {
		switch tok.Kind {
		case TokenField:
			pq.HasFields = true
			pq.Fields = append(pq.Fields, FieldSearch{Field: tok.Field, Value: tok.Text, Op: tok.Op})
		case TokenAnd, TokenOr, TokenNot:
			pq.HasOperators = true
		case TokenQuoted:
			pq.HasQuotes = true
		case TokenLParen, TokenRParen:
			pq.HasGrouping = true
		}
	}

	return pq
}

// scanQuoted consumes a quoted phrase starting at the opening quote. A
// backslash escapes the next character. Returns the unescaped text and the
// offset just past the closing quote, or ok=false when input ends while
// still inside the quotes.
func scanQuoted(s string, start int) (text string, next int, ok bool) {
	var b strings.Builder
	i := start + 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), i + 1, true
		}
		b.WriteByte(c)
		i++
	}
	return "", i, false
}

// scanWord consumes a field constraint, an operator keyword, or a plain term
// starting at a non-delimiter character.
func scanWord(pq *ParsedQuery, s string, start int) int {
	// A run of identifier characters directly followed by a colon may be a
	// field constraint. Anything unrecognized re-parses as a plain term from
	// the same start offset.
	j := start
	for j < len(s) && isIdentChar(s[j]) {
		j++
	}
	if j < len(s) && s[j] == ':' {
		if field, ok := ParseFieldName(s[start:j]); ok {
			return scanField(pq, s, start, j+1, field)
		}
	}

	end := start
	for end < len(s) && !isDelim(s[end]) {
		end++
	}
	word := s[start:end]

	// Operator keywords only count when followed by whitespace; a trailing
	// "AND" at end of input is just a term.
	if end < len(s) && isSpace(s[end]) {
		switch strings.ToUpper(word) {
		case "AND":
			pq.Tokens = append(pq.Tokens, Token{Kind: TokenAnd, Text: word, Start: start, End: end})
			return end
		case "OR":
			pq.Tokens = append(pq.Tokens, Token{Kind: TokenOr, Text: word, Start: start, End: end})
			return end
		case "NOT":
			pq.Tokens = append(pq.Tokens, Token{Kind: TokenNot, Text: word, Start: start, End: end})
			return end
		}
	}

	pq.Tokens = append(pq.Tokens, Token{Kind: TokenTerm, Text: word, Start: start, End: end})
	return end
}

// scanField consumes the remainder of a field constraint after the colon:
// an optional comparison operator on ordinal fields, then a quoted or bare
// value. An empty value drops the token and records an error.
func scanField(pq *ParsedQuery, s string, start, i int, field FieldKind) int {
	op := OpEq
	if field.Ordinal() {
		op, i = scanCompareOp(s, i)
	}

	var value string
	if i < len(s) && s[i] == '"' {
		text, next, ok := scanQuoted(s, i)
		if !ok {
			pq.Errors = append(pq.Errors, ErrUnmatchedQuote)
			return next
		}
		value = text
		i = next
	} else {
		vstart := i
		for i < len(s) && !isDelim(s[i]) {
			i++
		}
		value = s[vstart:i]
	}

	if value == "" {
		pq.Errors = append(pq.Errors, "Empty value for field: "+field.String())
		return i
	}

	pq.Tokens = append(pq.Tokens, Token{Kind: TokenField, Text: value, Field: field, Op: op, Start: start, End: i})
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelim(c byte) bool {
	return isSpace(c) || c == '(' || c == ')'
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isTermStart reports whether a term may begin at this byte: ASCII letters
// and digits, plus any non-ASCII byte so multibyte runes start terms too.
func isTermStart(c byte) bool {
	return isIdentChar(c) || (c >= '0' && c <= '9') || c >= 0x80
}
