package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/umputun/lepdl/pkg/download"
	"github.com/umputun/lepdl/pkg/service"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// printParse shows archive stats of a parse run
func printParse(out io.Writer, rep service.Report, verbose bool) {
	rows := [][]string{
		{"posts", strconv.Itoa(rep.Posts)},
		{"episodes parsed", strconv.Itoa(rep.Parsed)},
		{"anomalies", strconv.Itoa(len(rep.Anomalies))},
		{"added", strconv.Itoa(rep.Merge.Added)},
		{"updated", strconv.Itoa(rep.Merge.Updated)},
		{"stale", strconv.Itoa(rep.Merge.Stale)},
		{"reserve links from feed", strconv.Itoa(rep.Enriched)},
		{"episodes in database", strconv.Itoa(rep.Total)},
	}
	if !rep.Last.Date.IsZero() {
		rows = append(rows, []string{"last episode", fmt.Sprintf("%d, %s", rep.Last.Number, rep.Last.Date)})
	}
	rows = append(rows, []string{"database saved", strconv.FormatBool(rep.Saved)})
	fmt.Fprintln(out, renderTable([]string{"Archive", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	if verbose {
		printAnomalies(out, rep)
	}
}

// printAnomalyCount reports skipped archive posts, listing them in verbose mode
func printAnomalyCount(out io.Writer, rep service.Report, verbose bool) {
	if len(rep.Anomalies) == 0 {
		return
	}
	fmt.Fprintf(out, "%s: %d posts skipped\n", color.YellowString("parse anomalies"), len(rep.Anomalies))
	if verbose {
		printAnomalies(out, rep)
	}
}

func printAnomalies(out io.Writer, rep service.Report) {
	for _, a := range rep.Anomalies {
		fmt.Fprintf(out, "%s %s\n", color.YellowString("skipped"), a)
	}
}

// printPlan lists files a dry run would download
func printPlan(out io.Writer, rep service.Report) {
	if len(rep.Plan) == 0 {
		fmt.Fprintln(out, "nothing selected")
		return
	}
	rows := make([][]string, 0, len(rep.Plan))
	for _, o := range rep.Plan {
		rows = append(rows, []string{o.Key.String(), string(o.Kind), o.Name, o.State.String()})
	}
	fmt.Fprintln(out, renderTable([]string{"Episode", "Kind", "File", "State"}, rows, nil))
}

// printReport shows the download summary, failures are always listed
func printReport(out io.Writer, rep service.Report, verbose bool) {
	sum := rep.Summary
	if len(sum.Outcomes) == 0 {
		fmt.Fprintln(out, "nothing downloaded")
		printAnomalyCount(out, rep, verbose)
		return
	}

	if verbose {
		rows := make([][]string, 0, len(sum.Outcomes))
		for _, o := range sum.Outcomes {
			rows = append(rows, []string{o.Key.String(), string(o.Kind), o.Name, stateText(o.State), formatBytes(o.Bytes)})
		}
		fmt.Fprintln(out, renderTable([]string{"Episode", "Kind", "File", "State", "Size"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
	}

	if failures := sum.Failures(); len(failures) > 0 {
		rows := make([][]string, 0, len(failures))
		for _, o := range failures {
			rows = append(rows, []string{o.Key.String(), o.Name, o.Reason})
		}
		fmt.Fprintln(out, renderTable([]string{"Episode", "File", "Reason"}, rows, nil))
	}

	fmt.Fprintf(out, "%s: %d, on disk: %d, failed: %d, abandoned: %d, %s total\n",
		color.GreenString("downloaded"), sum.Counts[download.StateSucceeded], sum.Counts[download.StateSkipped],
		sum.Counts[download.StateFailed], sum.Counts[download.StateAbandoned], formatBytes(sum.Bytes()))
	printAnomalyCount(out, rep, verbose)
	if rep.SaveErr != nil {
		fmt.Fprintf(out, "%s %v\n", color.RedString("database not saved:"), rep.SaveErr)
	}
	fmt.Fprintf(out, "run %s\n", rep.RunID)
}

func stateText(s download.State) string {
	switch s {
	case download.StateSucceeded:
		return color.GreenString(s.String())
	case download.StateFailed:
		return color.RedString(s.String())
	case download.StateAbandoned:
		return color.YellowString(s.String())
	default:
		return s.String()
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
