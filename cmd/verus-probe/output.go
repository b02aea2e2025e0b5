// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
	neutralColor = color.New(color.FgYellow, color.Bold)
)

// printResult writes v as indented JSON to the --output file, or to w.
func printResult(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	out = append(out, '\n')

	if path := viper.GetString(outputKey); path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	}
	_, err = w.Write(out)
	return err
}

func statusColor(s types.Status) *color.Color {
	switch s {
	case types.StatusSuccess:
		return successColor
	case types.StatusVerificationFailed, types.StatusCompilationFailed:
		return failureColor
	default:
		return neutralColor
	}
}

// printSummary writes a status line and a table of counters to w.
func printSummary(w io.Writer, r *types.AnalysisResult) {
	statusColor(r.Status).Fprintf(w, "%s\n", r.Status)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Functions", "Count"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	s := r.Summary
	rows := [][2]string{
		{"verified", strconv.Itoa(s.VerifiedFunctions)},
		{"failed", strconv.Itoa(s.FailedFunctions)},
		{"unverified", strconv.Itoa(s.UnverifiedFunctions)},
		{"verification errors", strconv.Itoa(s.VerificationErrors)},
		{"compilation errors", strconv.Itoa(s.CompilationErrors)},
		{"compilation warnings", strconv.Itoa(s.CompilationWarnings)},
	}
	for _, row := range rows {
		table.Append([]string{row[0], row[1]})
	}
	table.SetFooter([]string{"total", strconv.Itoa(s.TotalFunctions)})
	table.Render()
}
