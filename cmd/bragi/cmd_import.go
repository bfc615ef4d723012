/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/bragi/internal/library"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import tracks into the local library",
	Long:  "Import track metadata from a manifest file into the local library database",
}

var importManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Import from a YAML track manifest",
	Long:  "Import tracks from a YAML manifest file produced by an exporter or written by hand",
	RunE:  runImportManifest,
}

var (
	manifestPath   string
	manifestDryRun bool
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importManifestCmd)

	importManifestCmd.Flags().StringVar(&manifestPath, "file", "", "Path to the YAML track manifest (required)")
	importManifestCmd.Flags().BoolVar(&manifestDryRun, "dry-run", false, "Parse the manifest without importing")
	importManifestCmd.MarkFlagRequired("file")
}

// Manifest is the top-level YAML structure accepted by the import command.
type Manifest struct {
	Version int             `yaml:"version"`
	Tracks  []ManifestTrack `yaml:"tracks"`
}

// ManifestTrack describes one track to import.
type ManifestTrack struct {
	Title           string `yaml:"title"`
	Artist          string `yaml:"artist"`
	Album           string `yaml:"album,omitempty"`
	Year            int    `yaml:"year,omitempty"`
	DurationSeconds int    `yaml:"duration_seconds,omitempty"`
	Path            string `yaml:"path,omitempty"`
}

func runImportManifest(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().
		Str("manifest_path", manifestPath).
		Bool("dry_run", manifestDryRun).
		Msg("starting manifest import")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	rows := make([]library.TrackRow, 0, len(manifest.Tracks))
	var skipped int
	for _, t := range manifest.Tracks {
		if t.Title == "" {
			skipped++
			continue
		}
		rows = append(rows, library.TrackRow{
			Title:           t.Title,
			Artist:          t.Artist,
			Album:           t.Album,
			Year:            t.Year,
			DurationSeconds: t.DurationSeconds,
			Path:            t.Path,
		})
	}

	if manifestDryRun {
		fmt.Printf("\nImport Preview:\n")
		fmt.Printf("  Tracks:  %d\n", len(rows))
		if skipped > 0 {
			fmt.Printf("  Skipped: %d (missing title)\n", skipped)
		}
		fmt.Printf("\nRun without --dry-run to perform the import.\n")
		return nil
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	lib := library.New(database, logger)
	if err := lib.Migrate(); err != nil {
		return fmt.Errorf("migrate library schema: %w", err)
	}

	count, err := lib.Import(context.Background(), rows)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("\nImport Complete!\n")
	fmt.Printf("  Tracks:  %d imported\n", count)
	if skipped > 0 {
		fmt.Printf("  Skipped: %d (missing title)\n", skipped)
	}

	logger.Info().Int("count", count).Msg("manifest import completed successfully")
	return nil
}
