package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/sources"
)

func sampleRun() *runs.ImportRun {
	started := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	return &runs.ImportRun{
		ID:         "run-1",
		VendorID:   "acme",
		Source:     sources.FlatFileID,
		Status:     runs.StatusCompleted,
		StartedAt:  started,
		FinishedAt: &finished,
		Totals:     runs.Totals{Found: 4, New: 2, Ignored: 2},
		Log:        []string{"skipped W-2: missing title"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"wide", FormatWide, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"", "", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunsToTableData(t *testing.T) {
	list := []runs.ImportRun{*sampleRun()}

	data := RunsToTableData(list, false)
	require.Len(t, data.Rows, 1)
	assert.Len(t, data.Rows[0], len(data.Headers))
	assert.Equal(t, "Completed", data.Rows[0][3])
	assert.Equal(t, "1.5s", data.Rows[0][9])

	wide := RunsToTableData(list, true)
	assert.Equal(t, "ID", wide.Headers[0])
	assert.Equal(t, "run-1", wide.Rows[0][0])
	assert.Len(t, wide.ColumnAlignment, len(wide.Headers))
}

func TestWriteRunTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRun(&buf, sampleRun(), FormatTable))
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "skipped W-2: missing title")
}

func TestWriteRunJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRun(&buf, sampleRun(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "acme", decoded["vendorId"])
	assert.Equal(t, float64(2), decoded["new"])
}

func TestWriteRunMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRun(&buf, sampleRun(), FormatMarkdown))
	out := buf.String()
	assert.Contains(t, strings.ToLower(out), "property")
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "### Log")
	assert.Contains(t, out, "skipped W-2: missing title")
}

func TestMarkdownFormatterFencesValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatMarkdown).Format(&buf, map[string]int{"found": 4}))
	assert.Contains(t, buf.String(), "```json")
	assert.Contains(t, buf.String(), `"found": 4`)
}

func TestWriteRunsYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRuns(&buf, []runs.ImportRun{*sampleRun()}, FormatYAML))
	assert.Contains(t, buf.String(), "vendor_id: acme")
	assert.Contains(t, buf.String(), "found: 4")
}

func TestWriteBatch(t *testing.T) {
	batch := &sources.Batch{
		Source: sources.RemoteID,
		Candidates: []catalog.Candidate{
			{SourceRef: "7", Title: "Lamp", Category: "Lighting", Price: 20, IdentityKey: "https://shop.test/lamp"},
		},
		Skipped: []sources.Skip{{Ref: "product 8", Reason: "missing permalink"}},
	}

	data := BatchToTableData(batch)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "20.00", data.Rows[0][3])
	assert.Equal(t, "skipped: missing permalink", data.Rows[1][4])

	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, batch, FormatJSON))
	assert.Contains(t, buf.String(), `"found": 2`)
}
