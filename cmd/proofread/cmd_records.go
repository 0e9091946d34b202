// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianProofread/pkg/ux"
	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
	"github.com/AleutianAI/AleutianProofread/services/proofread/records"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

const previewRunes = 40

func newRecordsCmd(app *cli) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect stored proofreading results",
		Long: `Operates directly on the record store configured under "records"
(badger directory or sqlite file). Stop a running badger-backed server first;
badger allows a single process per directory.`,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(app, func(store records.Store) error {
				recs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), recs)
				}
				printer, err := app.printer(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				printRecordTable(cmd.OutOrStdout(), printer, recs)
				return nil
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", records.DefaultListLimit,
		fmt.Sprintf("Maximum records to show (at most %d)", records.MaxListLimit))

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(app, func(store records.Store) error {
				rec, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, records.ErrNotFound) {
					return fmt.Errorf("record %s not found", args[0])
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), rec)
				}
				printer, err := app.printer(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				printer.Result(ux.Result{
					Source:    rec.ID + " (" + rec.CreatedAt.Format(time.RFC3339) + ")",
					Original:  rec.Original,
					Corrected: rec.Corrected,
					Provider:  rec.Provider,
					Changes:   toChanges(rec.Analysis),
				})
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(app, func(store records.Store) error {
				err := store.Delete(cmd.Context(), args[0])
				if errors.Is(err, records.ErrNotFound) {
					return fmt.Errorf("record %s not found", args[0])
				}
				if err != nil {
					return err
				}
				printer, err := app.printer(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				printer.Success("Deleted record " + args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(app *cli, fn func(records.Store) error) error {
	if app.cfg.Records.Backend == config.RecordsNone || app.cfg.Records.Backend == "" {
		return errors.New(`record persistence is disabled (records.backend is "none")`)
	}
	store, err := records.Open(app.cfg.Records, app.logger.Slog())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func printRecordTable(w io.Writer, printer *ux.Printer, recs []records.Record) {
	if len(recs) == 0 {
		printer.Info("No records")
		return
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Provider,
			strconv.Itoa(len(r.Analysis)),
			preview(r.Original),
		})
	}

	if printer.Mode() == ux.ModePlain {
		for _, row := range rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ux.ColorTealDeep)).
		Headers("ID", "CREATED", "PROVIDER", "CHANGES", "TEXT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return ux.Styles.Title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())
}

// preview returns the first previewRunes runes of s on one line.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes-1]) + "…"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
