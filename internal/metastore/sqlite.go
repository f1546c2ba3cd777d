package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ternlund/datapact/internal/apperr"
	"github.com/ternlund/datapact/internal/contract"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS contracts (
	contract_id  TEXT PRIMARY KEY,
	owner        TEXT NOT NULL,
	created_time TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'DRAFT',
	s3_path      TEXT NOT NULL,
	extra        TEXT NOT NULL DEFAULT '{}'
);
`

// SQLite stores records in a local SQLite database. It backs local
// development and tests with the same semantics as the DynamoDB store.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("metastore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metastore: ping: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metastore: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Create(ctx context.Context, id, owner, location string) (contract.Record, error) {
	rec := contract.NewRecord(id, owner, location)
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO contracts (contract_id, owner, created_time, status, s3_path) VALUES (?, ?, ?, ?, ?)`,
		rec.ContractID, rec.Owner, rec.CreatedTime, rec.Status, rec.S3Path)
	if err != nil {
		return contract.Record{}, fmt.Errorf("%w: insert %s: %v", apperr.ErrMetadataWrite, id, err)
	}
	return rec, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (contract.Record, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT contract_id, owner, created_time, status, s3_path, extra FROM contracts WHERE contract_id = ?`, id)
	return scanRecord(row, id)
}

func scanRecord(row *sql.Row, id string) (contract.Record, error) {
	var rec contract.Record
	var extra string
	err := row.Scan(&rec.ContractID, &rec.Owner, &rec.CreatedTime, &rec.Status, &rec.S3Path, &extra)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.Record{}, fmt.Errorf("%w: contract %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return contract.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &rec.Fields); err != nil {
			return contract.Record{}, fmt.Errorf("decode extra fields for %s: %w", id, err)
		}
	}
	return rec, nil
}

func (s *SQLite) Update(ctx context.Context, id string, fields map[string]contract.Value) error {
	if len(fields) == 0 {
		return nil
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUpdateFailed, err)
	}
	if rec.Fields == nil {
		rec.Fields = make(map[string]any)
	}
	for name, v := range fields {
		switch name {
		case contract.FieldOwner:
			rec.Owner = textOf(v)
		case contract.FieldCreatedTime:
			rec.CreatedTime = textOf(v)
		case contract.FieldStatus:
			rec.Status = textOf(v)
		case contract.FieldS3Path:
			rec.S3Path = textOf(v)
		default:
			rec.Fields[name] = v.Interface()
		}
	}
	extra, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("%w: encode extra fields: %v", apperr.ErrUpdateFailed, err)
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE contracts SET owner = ?, created_time = ?, status = ?, s3_path = ?, extra = ? WHERE contract_id = ?`,
		rec.Owner, rec.CreatedTime, rec.Status, rec.S3Path, string(extra), id)
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", apperr.ErrUpdateFailed, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: contract %s vanished during update", apperr.ErrUpdateFailed, id)
	}
	return nil
}

// textOf renders a patch value destined for a typed column. Non-text
// kinds are JSON-encoded so nothing is silently dropped.
func textOf(v contract.Value) string {
	if v.Kind == contract.KindText {
		return v.Text
	}
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return fmt.Sprint(v.Interface())
	}
	return string(b)
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM contracts WHERE contract_id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]contract.Record, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT contract_id, owner, created_time, status, s3_path, extra FROM contracts`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	records := []contract.Record{}
	for rows.Next() {
		var rec contract.Record
		var extra string
		if err := rows.Scan(&rec.ContractID, &rec.Owner, &rec.CreatedTime, &rec.Status, &rec.S3Path, &extra); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		if extra != "" && extra != "{}" {
			if err := json.Unmarshal([]byte(extra), &rec.Fields); err != nil {
				return nil, fmt.Errorf("decode extra fields for %s: %w", rec.ContractID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
