/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"reflect"
	"testing"
)

func TestNormalizeSearchText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Hello", "hello"},
		{"spaces stripped", "The Beatles", "thebeatles"},
		{"punctuation stripped", "AC/DC - T.N.T.", "acdctnt"},
		{"quotes stripped", `"Heroes"`, "heroes"},
		{"trimmed", "  abba  ", "abba"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeSearchText(tt.input); got != tt.expected {
				t.Errorf("normalizeSearchText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplitArtists(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single", "Queen", []string{"Queen"}},
		{"joined", "Queen; David Bowie", []string{"Queen", "David Bowie"}},
		{"empty", "", nil},
		{"blank segments", "Queen; ; ", []string{"Queen"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitArtists(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("splitArtists(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTrackRowToTrack(t *testing.T) {
	row := TrackRow{
		ID:              7,
		Title:           "Under Pressure",
		Artist:          "Queen; David Bowie",
		Album:           "Hot Space",
		Year:            1982,
		DurationSeconds: 248,
	}

	track := row.toTrack()
	if track.ID != "7" || track.Platform != "library" {
		t.Errorf("identity fields wrong: %+v", track)
	}
	if track.Name != "Under Pressure" || track.AlbumName != "Hot Space" {
		t.Errorf("text fields wrong: %+v", track)
	}
	if len(track.ArtistNames) != 2 {
		t.Errorf("artist names = %v, want 2 entries", track.ArtistNames)
	}
	if track.ReleaseYear != 1982 || track.DurationSeconds != 248 {
		t.Errorf("ordinal fields wrong: %+v", track)
	}
}
