package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/stackzip/pkg/catalog"
	"github.com/Sumatoshi-tech/stackzip/pkg/safeconv"
	"github.com/Sumatoshi-tech/stackzip/pkg/sweep"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func paint(attr color.Attribute, text string, noColor bool) string {
	c := color.New(attr)
	if noColor {
		c.DisableColor()
	}

	return c.Sprint(text)
}

func paintStatus(status string, noColor bool) string {
	switch status {
	case catalog.StatusOK:
		return paint(color.FgGreen, status, noColor)
	case catalog.StatusFailed:
		return paint(color.FgRed, status, noColor)
	default:
		return paint(color.FgYellow, status, noColor)
	}
}

func sizeOf(n int64) string {
	return humanize.Bytes(safeconv.MustInt64ToUint64(n))
}

// renderReport prints one row per source directory and a status line.
func renderReport(w io.Writer, report *sweep.Report, noColor bool) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Directory", "Project", "Files", "Days", "Skipped", "Archives", "Size", "Disposed", "Reaped", "Error"})

	var total int64

	for _, dir := range report.Dirs {
		var size int64
		for _, artifact := range dir.Artifacts {
			size += artifact.Bytes
		}

		total += size

		errText := ""
		if dir.Err != nil {
			errText = paint(color.FgRed, string(sweep.KindOf(dir.Err)), noColor)
		}

		tbl.AppendRow(table.Row{
			dir.Dir, dir.Project, dir.Files, dir.Days, dir.Skipped,
			len(dir.Artifacts), sizeOf(size), dir.FilesDisposed, dir.MarkersReaped, errText,
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d directories", len(report.Dirs)), "", "", "", "",
		report.Archives(), sizeOf(total), report.FilesDisposed(), report.MarkersReaped(), "",
	})
	tbl.Render()

	status := catalog.StatusOK
	if report.Failed() {
		status = catalog.StatusFailed
	}

	fmt.Fprintf(w, "sweep %s %s: %d new archives, %d files archived in %s\n",
		report.ID, paintStatus(status, noColor), report.NewArchives(), report.FilesArchived(),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	if report.Err != nil {
		fmt.Fprintln(w, paint(color.FgRed, report.Err.Error(), noColor))
	}
}

func renderArtifacts(w io.Writer, format string, artifacts []catalog.Artifact, noColor bool) error {
	switch format {
	case FormatTable:
		tbl := newTable(w)
		tbl.AppendHeader(table.Row{"Created", "Artifact", "Project", "Day", "Files", "Size", "Reused", "Location"})

		for _, a := range artifacts {
			reused := ""
			if a.Reused {
				reused = paint(color.FgYellow, "yes", noColor)
			}

			tbl.AppendRow(table.Row{
				a.CreatedAt.Local().Format(timeLayout), a.Name, a.Project, a.Day,
				a.Files, sizeOf(a.Bytes), reused, a.Location,
			})
		}

		tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d artifacts", len(artifacts))})
		tbl.Render()

		return nil
	default:
		return encode(w, format, artifacts)
	}
}

func renderSweeps(w io.Writer, format string, sweeps []catalog.Sweep, noColor bool) error {
	switch format {
	case FormatTable:
		tbl := newTable(w)
		tbl.AppendHeader(table.Row{"Started", "Sweep", "Status", "Dirs", "Archives", "Archived", "Disposed", "Reaped", "Took"})

		for _, s := range sweeps {
			took := ""
			if !s.FinishedAt.IsZero() {
				took = s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
			}

			tbl.AppendRow(table.Row{
				s.StartedAt.Local().Format(timeLayout), s.ID, paintStatus(s.Status, noColor),
				s.Directories, s.Archives, s.FilesArchived, s.FilesDisposed, s.MarkersReaped, took,
			})
		}

		tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d sweeps", len(sweeps))})
		tbl.Render()

		return nil
	default:
		return encode(w, format, sweeps)
	}
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
