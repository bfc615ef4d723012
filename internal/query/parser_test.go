/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package query

import (
	"reflect"
	"testing"
)

func kinds(pq ParsedQuery) []TokenKind {
	out := make([]TokenKind, 0, len(pq.Tokens))
	for _, tok := range pq.Tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func texts(pq ParsedQuery) []string {
	out := make([]string, 0, len(pq.Tokens))
	for _, tok := range pq.Tokens {
		out = append(out, tok.Text)
	}
	return out
}

func TestParseTokens(t *testing.T) {
	tests := []struct {
		name  string
		query string
		kinds []TokenKind
		texts []string
	}{
		{"empty", "", []TokenKind{}, []string{}},
		{"whitespace only", "  \t\n ", []TokenKind{}, []string{}},
		{"single term", "jazz", []TokenKind{TokenTerm}, []string{"jazz"}},
		{"two terms", "miles davis", []TokenKind{TokenTerm, TokenTerm}, []string{"miles", "davis"}},
		{"quoted phrase", `"Bohemian Rhapsody"`, []TokenKind{TokenQuoted}, []string{"Bohemian Rhapsody"}},
		{"escaped quote", `"say \"hi\""`, []TokenKind{TokenQuoted}, []string{`say "hi"`}},
		{"operators", "jazz AND blues OR funk", []TokenKind{TokenTerm, TokenAnd, TokenTerm, TokenOr, TokenTerm}, []string{"jazz", "AND", "blues", "OR", "funk"}},
		{"lowercase operators", "jazz and not blues", []TokenKind{TokenTerm, TokenAnd, TokenNot, TokenTerm}, []string{"jazz", "and", "not", "blues"}},
		{"grouping", "(jazz OR blues) rock", []TokenKind{TokenLParen, TokenTerm, TokenOr, TokenTerm, TokenRParen, TokenTerm}, []string{"(", "jazz", "OR", "blues", ")", "rock"}},
		{"field term", "artist:Queen", []TokenKind{TokenField}, []string{"Queen"}},
		{"field quoted", `artist:"The Beatles"`, []TokenKind{TokenField}, []string{"The Beatles"}},
		{"field uppercase name", "ARTIST:queen", []TokenKind{TokenField}, []string{"queen"}},
		{"year with operator", "year:>1975", []TokenKind{TokenField}, []string{"1975"}},
		{"unknown field is term", "genre:rock", []TokenKind{TokenTerm}, []string{"genre:rock"}},
		{"trailing AND is term", "jazz AND", []TokenKind{TokenTerm, TokenTerm}, []string{"jazz", "AND"}},
		{"AND before paren is term", "(a AND)", []TokenKind{TokenLParen, TokenTerm, TokenTerm, TokenRParen}, []string{"(", "a", "AND", ")"}},
		{"stray punctuation skipped", "! jazz !!", []TokenKind{TokenTerm}, []string{"jazz"}},
		{"field closed by paren", "(artist:Queen)", []TokenKind{TokenLParen, TokenField, TokenRParen}, []string{"(", "Queen", ")"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq := Parse(tt.query)
			if len(pq.Errors) != 0 {
				t.Fatalf("Parse(%q) errors = %v, want none", tt.query, pq.Errors)
			}
			if got := kinds(pq); !reflect.DeepEqual(got, tt.kinds) && !(len(got) == 0 && len(tt.kinds) == 0) {
				t.Errorf("Parse(%q) kinds = %v, want %v", tt.query, got, tt.kinds)
			}
			if got := texts(pq); !reflect.DeepEqual(got, tt.texts) && !(len(got) == 0 && len(tt.texts) == 0) {
				t.Errorf("Parse(%q) texts = %v, want %v", tt.query, got, tt.texts)
			}
		})
	}
}

func TestParseFieldSearches(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		fields []FieldSearch
	}{
		{"textual default", "artist:Queen", []FieldSearch{{Field: FieldArtist, Value: "Queen", Op: OpEq}}},
		{"year gt", "year:>1975", []FieldSearch{{Field: FieldYear, Value: "1975", Op: OpGt}}},
		{"year gte", "year:>=1975", []FieldSearch{{Field: FieldYear, Value: "1975", Op: OpGte}}},
		{"year lte", "year:<=1975", []FieldSearch{{Field: FieldYear, Value: "1975", Op: OpLte}}},
		{"year explicit eq", "year:=1975", []FieldSearch{{Field: FieldYear, Value: "1975", Op: OpEq}}},
		{"duration lt", "duration:<200", []FieldSearch{{Field: FieldDuration, Value: "200", Op: OpLt}}},
		{"operator not consumed on textual", "album:>night", []FieldSearch{{Field: FieldAlbum, Value: ">night", Op: OpEq}}},
		{"mixed", `artist:"Queen" year:>1975`, []FieldSearch{
			{Field: FieldArtist, Value: "Queen", Op: OpEq},
			{Field: FieldYear, Value: "1975", Op: OpGt},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq := Parse(tt.query)
			if len(pq.Errors) != 0 {
				t.Fatalf("Parse(%q) errors = %v, want none", tt.query, pq.Errors)
			}
			if !reflect.DeepEqual(pq.Fields, tt.fields) {
				t.Errorf("Parse(%q) fields = %+v, want %+v", tt.query, pq.Fields, tt.fields)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name                             string
		query                            string
		operators, fields, quotes, group bool
	}{
		{"plain", "miles davis", false, false, false, false},
		{"operators", "a AND b", true, false, false, false},
		{"fields", "artist:miles", false, true, false, false},
		{"quotes", `"kind of blue"`, false, false, true, false},
		{"grouping", "(a b)", false, false, false, true},
		{"quoted field value sets no quote flag", `artist:"miles"`, false, true, false, false},
		{"everything", `(artist:miles OR "john coltrane") NOT fusion`, true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq := Parse(tt.query)
			if pq.HasOperators != tt.operators || pq.HasFields != tt.fields ||
				pq.HasQuotes != tt.quotes || pq.HasGrouping != tt.group {
				t.Errorf("Parse(%q) flags = op:%v field:%v quote:%v group:%v, want op:%v field:%v quote:%v group:%v",
					tt.query, pq.HasOperators, pq.HasFields, pq.HasQuotes, pq.HasGrouping,
					tt.operators, tt.fields, tt.quotes, tt.group)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		errors []string
	}{
		{"unmatched quote", `"never closed`, []string{ErrUnmatchedQuote}},
		{"unmatched quote in field", `artist:"never closed`, []string{ErrUnmatchedQuote}},
		{"unmatched closing paren", "jazz)", []string{ErrUnmatchedClosingParen}},
		{"unmatched opening paren", "(jazz", []string{ErrUnmatchedOpeningParen}},
		{"empty field value", "artist: jazz", []string{"Empty value for field: artist"}},
		{"empty ordinal value", "year:>", []string{"Empty value for field: year"}},
		{"accumulated", `(artist: "oops`, []string{
			"Empty value for field: artist",
			ErrUnmatchedQuote,
			ErrUnmatchedOpeningParen,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq := Parse(tt.query)
			if !reflect.DeepEqual(pq.Errors, tt.errors) {
				t.Errorf("Parse(%q) errors = %v, want %v", tt.query, pq.Errors, tt.errors)
			}
		})
	}
}

func TestParseClampsParenDepth(t *testing.T) {
	pq := Parse("a) (b")
	// The stray closer must not consume the later opener's balance.
	want := []string{ErrUnmatchedClosingParen, ErrUnmatchedOpeningParen}
	if !reflect.DeepEqual(pq.Errors, want) {
		t.Fatalf("errors = %v, want %v", pq.Errors, want)
	}
}

func TestParseOffsets(t *testing.T) {
	pq := Parse(`rock artist:"Queen"`)
	if len(pq.Tokens) != 2 {
		t.Fatalf("token count = %d, want 2", len(pq.Tokens))
	}
	if pq.Tokens[0].Start != 0 || pq.Tokens[0].End != 4 {
		t.Errorf("term offsets = [%d,%d), want [0,4)", pq.Tokens[0].Start, pq.Tokens[0].End)
	}
	if pq.Tokens[1].Start != 5 || pq.Tokens[1].End != 19 {
		t.Errorf("field offsets = [%d,%d), want [5,19)", pq.Tokens[1].Start, pq.Tokens[1].End)
	}
}

func TestParseFieldName(t *testing.T) {
	for _, name := range []string{"artist", "Album", "YEAR", "Duration"} {
		if _, ok := ParseFieldName(name); !ok {
			t.Errorf("ParseFieldName(%q) not recognized", name)
		}
	}
	for _, name := range []string{"genre", "", "artists"} {
		if _, ok := ParseFieldName(name); ok {
			t.Errorf("ParseFieldName(%q) unexpectedly recognized", name)
		}
	}
}
