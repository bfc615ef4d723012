/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models holds the normalized record shapes shared across sources.
package models

// Track is a minimal normalized track as returned by a search source. Zero
// values mark absent attributes: an empty AlbumName means the track has no
// album, a zero ReleaseYear or DurationSeconds means the value is unknown.
// The search core never mutates a Track.
type Track struct {
	ID              string   `json:"id,omitempty"`
	Platform        string   `json:"platform,omitempty"`
	Name            string   `json:"name"`
	ArtistNames     []string `json:"artist_names"`
	AlbumName       string   `json:"album_name,omitempty"`
	ReleaseYear     int      `json:"release_year,omitempty"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`
	URL             string   `json:"url,omitempty"`
}
