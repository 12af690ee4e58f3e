package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/umputun/lepdl/pkg/domain"
	"github.com/umputun/lepdl/pkg/download"
	"github.com/umputun/lepdl/pkg/service"
)

func TestPrintReport(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	outcomes := []download.Outcome{
		{Key: domain.Key{Number: 733}, Kind: domain.MediaAudio, Name: "733.mp3", State: download.StateSucceeded, Bytes: 2048},
		{Key: domain.Key{Number: 732}, Kind: domain.MediaAudio, Name: "732.mp3", State: download.StateFailed, Reason: "no link"},
	}
	rep := service.Report{
		RunID:     "run-1",
		Anomalies: []domain.Anomaly{{Position: 3, Title: "731. No date here", Reason: "missing date"}},
		Summary:   download.NewSummary(outcomes),
	}

	t.Run("short", func(t *testing.T) {
		var out bytes.Buffer
		printReport(&out, rep, false)
		assert.Contains(t, out.String(), "downloaded: 1, on disk: 0, failed: 1, abandoned: 0, 2.0 KiB total")
		assert.Contains(t, out.String(), "no link", "failures always listed")
		assert.Contains(t, out.String(), "parse anomalies: 1 posts skipped")
		assert.NotContains(t, out.String(), "missing date")
		assert.NotContains(t, out.String(), "733.mp3")
		assert.Contains(t, out.String(), "run run-1")
	})

	t.Run("verbose", func(t *testing.T) {
		var out bytes.Buffer
		printReport(&out, rep, true)
		assert.Contains(t, out.String(), "733.mp3")
		assert.Contains(t, out.String(), `skipped post #3 "731. No date here": missing date`)
	})

	t.Run("nothing downloaded", func(t *testing.T) {
		var out bytes.Buffer
		printReport(&out, service.Report{Anomalies: rep.Anomalies}, true)
		assert.Contains(t, out.String(), "nothing downloaded")
		assert.Contains(t, out.String(), "parse anomalies: 1 posts skipped")
		assert.Contains(t, out.String(), "missing date")
	})

	t.Run("save error", func(t *testing.T) {
		var out bytes.Buffer
		printReport(&out, service.Report{Summary: rep.Summary, SaveErr: errors.New("disk full")}, false)
		assert.Contains(t, out.String(), "database not saved: disk full")
		assert.NotContains(t, out.String(), "parse anomalies")
	})
}
