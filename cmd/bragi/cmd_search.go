/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/bragi/internal/library"
	"github.com/friendsincode/bragi/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a one-shot search against the local library",
	Long:  "Run a search query from the command line, including boolean operators and field filters, and print the matching tracks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var searchLimit int

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	lib := library.New(database, logger)
	if err := lib.Migrate(); err != nil {
		return fmt.Errorf("migrate library schema: %w", err)
	}

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.SearchLimit
	}

	// No cache for a one-shot process.
	svc := search.New([]search.Source{lib}, nil, nil, logger)

	resp, err := svc.Search(context.Background(), search.Request{
		Query: strings.Join(args, " "),
		Limit: limit,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(resp.Errors) > 0 {
		fmt.Println("Query errors:")
		for _, e := range resp.Errors {
			fmt.Printf("  - %s\n", e)
		}
		return nil
	}

	if len(resp.Tracks) == 0 {
		fmt.Println("No matching tracks.")
		return nil
	}

	for _, track := range resp.Tracks {
		artists := strings.Join(track.ArtistNames, ", ")
		fmt.Printf("%-6s  %s - %s", track.ID, artists, track.Name)
		if track.AlbumName != "" {
			fmt.Printf(" [%s]", track.AlbumName)
		}
		if track.ReleaseYear > 0 {
			fmt.Printf(" (%d)", track.ReleaseYear)
		}
		fmt.Println()
	}
	fmt.Printf("\n%d track(s)\n", len(resp.Tracks))
	return nil
}
