/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library is the in-process track source: a gorm-backed local
// library searched with loose, punctuation-insensitive matching. It serves
// as one search source next to the platform adapters.
package library

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi/internal/models"
)

// TrackRow is the persisted library track.
type TrackRow struct {
	ID              uint   `gorm:"primaryKey"`
	Title           string `gorm:"index"`
	Artist          string `gorm:"index"`
	Album           string
	Year            int
	DurationSeconds int
	Path            string
}

// TableName keeps the table name stable across gorm naming changes.
func (TrackRow) TableName() string { return "library_tracks" }

// Library exposes the local track store.
type Library struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a library over an established DB connection.
func New(db *gorm.DB, logger zerolog.Logger) *Library {
	return &Library{db: db, logger: logger.With().Str("component", "library").Logger()}
}

// Migrate creates or updates the library schema.
func (l *Library) Migrate() error {
	return l.db.AutoMigrate(&TrackRow{})
}

// Name identifies this source in logs and metrics.
func (l *Library) Name() string { return "library" }

// Search returns candidate tracks for a base query. An empty query returns
// the library head up to limit, letting callers post-filter field-only
// queries.
func (l *Library) Search(ctx context.Context, baseQuery string, limit int) ([]models.Track, error) {
	dbq := l.db.WithContext(ctx).Model(&TrackRow{})
	dbq = applyLooseSearch(dbq, baseQuery)
	if limit > 0 {
		dbq = dbq.Limit(limit)
	}

	var rows []TrackRow
	if err := dbq.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("library search: %w", err)
	}

	tracks := make([]models.Track, 0, len(rows))
	for _, row := range rows {
		tracks = append(tracks, row.toTrack())
	}
	return tracks, nil
}

// Import inserts tracks, returning the number stored.
func (l *Library) Import(ctx context.Context, rows []TrackRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := l.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return 0, fmt.Errorf("library import: %w", err)
	}
	l.logger.Info().Int("count", len(rows)).Msg("imported tracks")
	return len(rows), nil
}

// Count returns the number of stored tracks.
func (l *Library) Count(ctx context.Context) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&TrackRow{}).Count(&count).Error
	return count, err
}

func (row TrackRow) toTrack() models.Track {
	return models.Track{
		ID:              strconv.FormatUint(uint64(row.ID), 10),
		Platform:        "library",
		Name:            row.Title,
		ArtistNames:     splitArtists(row.Artist),
		AlbumName:       row.Album,
		ReleaseYear:     row.Year,
		DurationSeconds: row.DurationSeconds,
	}
}

// splitArtists breaks a stored artist string on common joiners so field
// matching sees individual names.
func splitArtists(artist string) []string {
	if artist == "" {
		return nil
	}
	parts := strings.Split(artist, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var searchNormalizer = strings.NewReplacer(
	" ", "",
	".", "",
	"-", "",
	"_", "",
	"'", "",
	"\"", "",
	"/", "",
	"\\", "",
	"(", "",
	")", "",
	"[", "",
	"]", "",
	",", "",
	";", "",
	":", "",
)

func normalizeSearchText(s string) string {
	return searchNormalizer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

func normalizedSQLExpr(col string) string {
	// Keep this to SQL functions shared by postgres/mysql/sqlite.
	return fmt.Sprintf(
		`REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(LOWER(%s), ' ', ''), '.', ''), '-', ''), '_', ''), '''', ''), '"', ''), '/', ''), '\\', ''), '(', ''), ')', ''), '[', ''), ']', ''), ',', ''), ';', '')`,
		col,
	)
}

// applyLooseSearch narrows the query row set to tracks matching every word
// of the search text in some column. Word-level matching keeps multi-word
// queries useful even when the words land in different columns.
func applyLooseSearch(db *gorm.DB, query string) *gorm.DB {
	where := fmt.Sprintf(
		`LOWER(title) LIKE ? OR LOWER(artist) LIKE ? OR LOWER(album) LIKE ? OR %s LIKE ? OR %s LIKE ? OR %s LIKE ?`,
		normalizedSQLExpr("title"),
		normalizedSQLExpr("artist"),
		normalizedSQLExpr("album"),
	)

	for _, word := range strings.Fields(strings.ToLower(query)) {
		pattern := "%" + word + "%"
		norm := "%" + normalizeSearchText(word) + "%"
		db = db.Where(where, pattern, pattern, pattern, norm, norm, norm)
	}
	return db
}
