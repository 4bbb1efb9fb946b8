package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mrsinham/shanoirimport/internal/extradata"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("extra data not found")

// record is one stored extra data with its file content.
type record struct {
	extradata.PhysiologicalData
	Content []byte
}

// payload returns the JSON shape of r for its datatype.
func (r *record) payload() extradata.Payload {
	if r.ExtraDataType == extradata.TypePhysiologicalData {
		return &r.PhysiologicalData
	}
	return &r.ExtraData
}

// Store keeps extra data in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens the database at dsn and creates the schema.
func OpenStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dsn, err)
	}
	// each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS extradata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		examination_id INTEGER NOT NULL,
		extradatatype TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		filepath TEXT NOT NULL DEFAULT '',
		has_heart_rate INTEGER NOT NULL DEFAULT 0,
		has_respiratory_rate INTEGER NOT NULL DEFAULT 0,
		has_sao2 INTEGER NOT NULL DEFAULT 0,
		has_temperature INTEGER NOT NULL DEFAULT 0,
		content BLOB
	)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const selectColumns = `SELECT id, examination_id, extradatatype, filename, filepath,
	has_heart_rate, has_respiratory_rate, has_sao2, has_temperature, content FROM extradata`

func scanRecord(row interface{ Scan(...any) error }) (*record, error) {
	var r record
	err := row.Scan(&r.ID, &r.ExaminationID, &r.ExtraDataType, &r.Filename, &r.Filepath,
		&r.HasHeartRate, &r.HasRespiratoryRate, &r.HasSao2, &r.HasTemperature, &r.Content)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns the records of one examination ordered by id.
func (s *Store) List(ctx context.Context, examID int64) ([]*record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE examination_id = ? ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []*record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id int64) (*record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// Create inserts r and sets its id.
func (s *Store) Create(ctx context.Context, r *record) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO extradata
		(examination_id, extradatatype, filename, filepath, has_heart_rate, has_respiratory_rate, has_sao2, has_temperature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ExaminationID, r.ExtraDataType, r.Filename, r.Filepath,
		r.HasHeartRate, r.HasRespiratoryRate, r.HasSao2, r.HasTemperature)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

// Update overwrites the metadata of r, leaving its file untouched.
func (s *Store) Update(ctx context.Context, r *record) error {
	res, err := s.db.ExecContext(ctx, `UPDATE extradata SET
		extradatatype = ?, filename = ?, filepath = ?,
		has_heart_rate = ?, has_respiratory_rate = ?, has_sao2 = ?, has_temperature = ?
		WHERE id = ? AND examination_id = ?`,
		r.ExtraDataType, r.Filename, r.Filepath,
		r.HasHeartRate, r.HasRespiratoryRate, r.HasSao2, r.HasTemperature,
		r.ID, r.ExaminationID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Delete removes record id of examination examID.
func (s *Store) Delete(ctx context.Context, examID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM extradata WHERE id = ? AND examination_id = ?`, id, examID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetFile stores the uploaded file of record id.
func (s *Store) SetFile(ctx context.Context, id int64, filename, filepath string, content []byte) error {
	res, err := s.db.ExecContext(ctx, `UPDATE extradata SET filename = ?, filepath = ?, content = ? WHERE id = ?`,
		filename, filepath, content, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
