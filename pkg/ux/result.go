// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Change is one annotated difference between an original and its correction.
type Change struct {
	Position   int
	Original   string
	Corrected  string
	Kind       string
	Suggestion string
}

// Result is one proofread input as shown to the user.
type Result struct {
	// Source names the input, e.g. a file path or "stdin".
	Source    string
	Original  string
	Corrected string
	Provider  string
	Changes   []Change

	// Err is set when the input could not be proofread; the other fields
	// except Source are then ignored.
	Err error
}

// kindStyles colors the change kinds the analyzer emits. Unknown kinds
// render muted.
var kindStyles = map[string]lipgloss.Style{
	"missing_word":   Styles.Warning,
	"extra_word":     Styles.Warning,
	"spelling":       Styles.Error,
	"capitalization": Styles.Subtitle,
	"grammar":        Styles.Highlight,
}

func kindStyle(kind string) lipgloss.Style {
	if s, ok := kindStyles[kind]; ok {
		return s
	}
	return Styles.Muted
}

// Result prints one proofreading result.
//
// # Description
//
// Rich mode prints the source as a title, the corrected text in a box and
// one bullet per change. Plain mode prints tab-separated records:
//
//	RESULT	<source>	<provider>	<n changes>
//	CHANGE	<source>	<position>	<kind>	<original>	<corrected>
//	TEXT	<source>	<corrected text with newlines escaped>
//
// A failed input prints a single ERROR line in either mode.
func (p *Printer) Result(r Result) {
	if r.Err != nil {
		if p.mode == ModePlain {
			fmt.Fprintf(p.out, "ERROR\t%s\t%s\n", r.Source, oneLine(r.Err.Error()))
			return
		}
		fmt.Fprintln(p.out, Styles.ErrorBox.Width(boxWidth).Render(
			Styles.Error.Bold(true).Render(r.Source)+"\n"+r.Err.Error()))
		return
	}

	if p.mode == ModePlain {
		fmt.Fprintf(p.out, "RESULT\t%s\t%s\t%d\n", r.Source, r.Provider, len(r.Changes))
		for _, c := range r.Changes {
			fmt.Fprintf(p.out, "CHANGE\t%s\t%d\t%s\t%s\t%s\n",
				r.Source, c.Position, c.Kind, c.Original, c.Corrected)
		}
		fmt.Fprintf(p.out, "TEXT\t%s\t%s\n", r.Source, oneLine(r.Corrected))
		return
	}

	header := Styles.Title.Render(r.Source)
	if r.Provider != "" {
		header += " " + Styles.Muted.Render("via "+r.Provider)
	}
	fmt.Fprintln(p.out, header)
	fmt.Fprintln(p.out, Styles.Box.Width(boxWidth).Render(r.Corrected))

	if len(r.Changes) == 0 {
		fmt.Fprintf(p.out, "%s %s\n\n", IconSuccess.Render(), Styles.Success.Render("No changes"))
		return
	}
	for _, c := range r.Changes {
		fmt.Fprintf(p.out, "  %s %s %s\n", IconBullet.Render(), kindStyle(c.Kind).Render(fmt.Sprintf("%-14s", c.Kind)), FormatChange(c))
	}
	fmt.Fprintln(p.out)
}

// FormatChange renders "old → new" with the removed side struck through and
// the added side underlined. Missing sides are omitted.
func FormatChange(c Change) string {
	switch {
	case c.Original == "":
		return Styles.Added.Render(c.Corrected)
	case c.Corrected == "":
		return Styles.Removed.Render(c.Original)
	default:
		return Styles.Removed.Render(c.Original) + " " + IconArrow.Render() + " " + Styles.Added.Render(c.Corrected)
	}
}

// Summary prints totals across every result, with per-kind counts sorted by
// kind name.
func (p *Printer) Summary(results []Result) {
	var inputs, failed, changes int
	byKind := make(map[string]int)
	for _, r := range results {
		inputs++
		if r.Err != nil {
			failed++
			continue
		}
		changes += len(r.Changes)
		for _, c := range r.Changes {
			byKind[c.Kind]++
		}
	}
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	if p.mode == ModePlain {
		parts := []string{
			fmt.Sprintf("inputs=%d", inputs),
			fmt.Sprintf("failed=%d", failed),
			fmt.Sprintf("changes=%d", changes),
		}
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", k, byKind[k]))
		}
		fmt.Fprintf(p.out, "SUMMARY: %s\n", strings.Join(parts, " "))
		return
	}

	fmt.Fprintf(p.out, "%s %s  %s %s  %s %s\n",
		Styles.Bold.Render(fmt.Sprintf("%d", inputs)), Styles.Muted.Render("inputs"),
		Styles.Warning.Render(fmt.Sprintf("%d", changes)), Styles.Muted.Render("changes"),
		Styles.Error.Render(fmt.Sprintf("%d", failed)), Styles.Muted.Render("failed"),
	)
	for _, k := range kinds {
		fmt.Fprintf(p.out, "  %s %d\n", kindStyle(k).Render(fmt.Sprintf("%-14s", k)), byKind[k])
	}
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", `\t`).Replace(s)
}
