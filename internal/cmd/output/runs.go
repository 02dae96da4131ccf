package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	md "github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/sources"
)

var title = cases.Title(language.English)

// RunsToTableData lists runs one per row. Wide adds the run id and the
// error column.
func RunsToTableData(list []runs.ImportRun, wide bool) Data {
	headers := []string{"Started", "Vendor", "Source", "Status", "Found", "New", "Updated", "Ignored", "Errors", "Duration"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight}
	if wide {
		headers = append([]string{"ID"}, append(headers, "Error")...)
		align = append([]Align{AlignLeft}, append(align, AlignLeft)...)
	}

	rows := make([][]string, 0, len(list))
	for i := range list {
		r := &list[i]
		row := []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.VendorID,
			string(r.Source),
			statusLabel(r.Status),
			strconv.Itoa(r.Found),
			strconv.Itoa(r.New),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Ignored),
			strconv.Itoa(r.Errors),
			duration(r),
		}
		if wide {
			row = append([]string{r.ID}, append(row, r.Error)...)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// RunToTableData shows one run as property rows.
func RunToTableData(r *runs.ImportRun) Data {
	rows := [][]string{
		{"ID", r.ID},
		{"Vendor", r.VendorID},
		{"Source", string(r.Source)},
		{"Status", statusLabel(r.Status)},
		{"Started", r.StartedAt.Local().Format(time.DateTime)},
		{"Duration", duration(r)},
		{"Found", strconv.Itoa(r.Found)},
		{"New", strconv.Itoa(r.New)},
		{"Updated", strconv.Itoa(r.Updated)},
		{"Ignored", strconv.Itoa(r.Ignored)},
		{"Errors", strconv.Itoa(r.Errors)},
	}
	if r.Error != "" {
		rows = append(rows, []string{"Error", r.Error})
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// BatchToTableData lists the candidates of a batch followed by its skips.
func BatchToTableData(b *sources.Batch) Data {
	rows := make([][]string, 0, b.Found())
	for i := range b.Candidates {
		c := &b.Candidates[i]
		rows = append(rows, []string{c.SourceRef, c.Title, c.Category, strconv.FormatFloat(c.Price, 'f', 2, 64), c.IdentityKey})
	}
	for _, s := range b.Skipped {
		rows = append(rows, []string{s.Ref, "", "", "", "skipped: " + s.Reason})
	}
	return Data{
		Headers:         []string{"Ref", "Title", "Category", "Price", "Identity"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
}

// WriteRun writes a run in format. Table output is followed by the run log.
func WriteRun(w io.Writer, r *runs.ImportRun, format Format) error {
	if format.IsStructured() {
		return NewFormatter(format).Format(w, r)
	}
	if err := NewFormatter(format).Format(w, RunToTableData(r)); err != nil {
		return err
	}
	if len(r.Log) == 0 {
		return nil
	}
	if format == FormatMarkdown {
		return md.NewMarkdown(w).LF().H3("Log").BulletList(r.Log...).Build()
	}
	_, err := fmt.Fprintf(w, "\nLog:\n  %s\n", strings.Join(r.Log, "\n  "))
	return err
}

// WriteRuns writes a run list in format.
func WriteRuns(w io.Writer, list []runs.ImportRun, format Format) error {
	if format.IsStructured() {
		return NewFormatter(format).Format(w, list)
	}
	return NewFormatter(format).Format(w, RunsToTableData(list, format == FormatWide))
}

// WriteBatch writes a fetched batch in format.
func WriteBatch(w io.Writer, b *sources.Batch, format Format) error {
	if format.IsStructured() {
		return NewFormatter(format).Format(w, map[string]any{
			"found":      b.Found(),
			"candidates": b.Candidates,
			"skipped":    b.Skipped,
		})
	}
	return NewFormatter(format).Format(w, BatchToTableData(b))
}

func statusLabel(s runs.Status) string {
	return title.String(string(s))
}

func duration(r *runs.ImportRun) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration(*r.FinishedAt).Round(time.Millisecond).String()
}
