package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/sources"
)

const runColumns = `id::text, vendor_id, source, status, started_at, finished_at,
	found, new, updated, ignored, errors, error, log`

// RunLedger is a runs.Ledger backed by the import_runs table.
type RunLedger struct {
	q querier
}

var _ runs.Ledger = (*RunLedger)(nil)

// Create implements runs.Ledger.
func (l *RunLedger) Create(ctx context.Context, run *runs.ImportRun) error {
	log, err := marshalLog(run.Log)
	if err != nil {
		return err
	}
	_, err = l.q.Exec(ctx,
		`INSERT INTO import_runs
			(id, vendor_id, source, status, started_at, finished_at, found, new, updated, ignored, errors, error, log)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.VendorID, run.Source.String(), run.Status.String(), run.StartedAt, run.FinishedAt,
		run.Found, run.New, run.Updated, run.Ignored, run.Errors, run.Error, log,
	)
	return mapError(err, "create", "import run", run.ID)
}

// Save implements runs.Ledger.
func (l *RunLedger) Save(ctx context.Context, run *runs.ImportRun) error {
	log, err := marshalLog(run.Log)
	if err != nil {
		return err
	}
	tag, err := l.q.Exec(ctx,
		`UPDATE import_runs SET status = $2, finished_at = $3, found = $4, new = $5, updated = $6,
			ignored = $7, errors = $8, error = $9, log = $10
		 WHERE id = $1`,
		run.ID, run.Status.String(), run.FinishedAt, run.Found, run.New, run.Updated,
		run.Ignored, run.Errors, run.Error, log,
	)
	if err != nil {
		return mapError(err, "save", "import run", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("import run", run.ID)
	}
	return nil
}

// Get implements runs.Ledger.
func (l *RunLedger) Get(ctx context.Context, id string) (*runs.ImportRun, error) {
	run, err := scanRun(l.q.QueryRow(ctx, `SELECT `+runColumns+` FROM import_runs WHERE id::text = $1`, id))
	if err != nil {
		return nil, mapError(err, "find", "import run", id)
	}
	return run, nil
}

// List implements runs.Ledger.
func (l *RunLedger) List(ctx context.Context, vendorID string) ([]runs.ImportRun, error) {
	rows, err := l.q.Query(ctx,
		`SELECT `+runColumns+` FROM import_runs
		 WHERE $1 = '' OR vendor_id = $1
		 ORDER BY started_at DESC, seq DESC`,
		vendorID,
	)
	if err != nil {
		return nil, mapError(err, "list", "import run", vendorID)
	}
	defer rows.Close()

	out := []runs.ImportRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, mapError(err, "list", "import run", vendorID)
		}
		out = append(out, *run)
	}
	return out, mapError(rows.Err(), "list", "import run", vendorID)
}

func marshalLog(lines []string) ([]byte, error) {
	if lines == nil {
		lines = []string{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, errors.NewValidationError("log", nil, err.Error())
	}
	return data, nil
}

func scanRun(row pgx.Row) (*runs.ImportRun, error) {
	var (
		run    runs.ImportRun
		source string
		status string
		log    []byte
	)
	err := row.Scan(&run.ID, &run.VendorID, &source, &status, &run.StartedAt, &run.FinishedAt,
		&run.Found, &run.New, &run.Updated, &run.Ignored, &run.Errors, &run.Error, &log)
	if err != nil {
		return nil, err
	}
	run.Source = sources.ID(source)
	run.Status = runs.Status(status)
	run.Log = []string{}
	if len(log) > 0 {
		if err := json.Unmarshal(log, &run.Log); err != nil {
			return nil, errors.WrapParse("json", "import_runs.log", err)
		}
	}
	return &run, nil
}
