package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/panelwell/panelwell/internal/mixedmodel"
	"github.com/panelwell/panelwell/internal/panel"
)

// ErrNotFound is returned when a dataset or fit ID does not exist.
var ErrNotFound = errors.New("not found")

// Store persists datasets and fits in a SQLite database at
// .panelwell/panelwell.db under the study root.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the study database for the given root.
func Open(root string) (*Store, error) {
	if err := EnsureStudyDir(root); err != nil {
		return nil, err
	}

	dbPath := DBPath(root)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDataset stores a dataset and its observations in one transaction.
// If d.ID is empty, a content-addressed ID is derived and set on d.
// scenarioJSON may be nil for datasets without a recorded scenario.
// Saving a dataset whose ID already exists replaces it.
func (s *Store) SaveDataset(ctx context.Context, d *panel.Dataset, scenarioJSON []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("invalid dataset: %w", err)
	}
	if d.ID == "" {
		d.ID = DatasetID(d)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Replace any previous copy; cascade clears its observations
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, d.ID); err != nil {
		return "", fmt.Errorf("failed to clear existing dataset: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO datasets (id, name, seed, scenario, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.Name, int64(d.Seed), nullBytes(scenarioJSON), now); err != nil {
		return "", fmt.Errorf("failed to insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (dataset_id, subject, group_name, time, score)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range d.Obs {
		if _, err := stmt.ExecContext(ctx, d.ID, o.Subject, string(o.Group), o.Time, o.Score); err != nil {
			return "", fmt.Errorf("failed to insert observation for %s: %w", o.Subject, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit dataset: %w", err)
	}
	return d.ID, nil
}

// GetDataset loads a dataset and its observations by ID.
// Observations come back ordered by subject then time.
func (s *Store) GetDataset(ctx context.Context, id string) (*panel.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := &panel.Dataset{ID: id}
	var seed int64
	err := s.db.QueryRowContext(ctx,
		`SELECT name, seed FROM datasets WHERE id = ?`, id,
	).Scan(&d.Name, &seed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", id, err)
	}
	d.Seed = uint64(seed)

	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, group_name, time, score
		FROM observations
		WHERE dataset_id = ?
		ORDER BY subject, time
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o panel.Observation
		var group string
		if err := rows.Scan(&o.Subject, &group, &o.Time, &o.Score); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Group = panel.Group(group)
		d.Obs = append(d.Obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observations: %w", err)
	}

	return d, nil
}

// GetScenario returns the stored scenario JSON for a dataset, or nil if
// none was recorded.
func (s *Store) GetScenario(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scenario sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT scenario FROM datasets WHERE id = ?`, id,
	).Scan(&scenario)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario for %s: %w", id, err)
	}
	if !scenario.Valid {
		return nil, nil
	}
	return []byte(scenario.String), nil
}

// ListDatasets returns summaries of all stored datasets, newest first.
func (s *Store) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.seed, d.created_at,
		       COUNT(o.subject),
		       COUNT(DISTINCT o.subject)
		FROM datasets d
		LEFT JOIN observations o ON o.dataset_id = d.id
		GROUP BY d.id
		ORDER BY d.created_at DESC, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var infos []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		var seed int64
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Name, &seed, &createdAt, &info.NumObs, &info.NumSubjects); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		info.Seed = uint64(seed)
		info.CreatedAt = parseTime(createdAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteDataset removes a dataset, its observations, and its fits.
func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveFit stores a model fit against an existing dataset and returns the
// new fit ID.
func (s *Store) SaveFit(ctx context.Context, datasetID string, res *mixedmodel.Result) (string, error) {
	id := NewFitID()
	if err := s.insertFit(ctx, id, datasetID, time.Now().UTC(), res); err != nil {
		return "", err
	}
	return id, nil
}

// RestoreFit inserts a fit preserving its original ID and timestamp.
func (s *Store) RestoreFit(ctx context.Context, rec *FitRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return s.insertFit(ctx, rec.ID, rec.DatasetID, created, &rec.Result)
}

func (s *Store) insertFit(ctx context.Context, id, datasetID string, created time.Time, res *mixedmodel.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := created.Format(time.RFC3339)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fits (id, dataset_id, subject_var, resid_var, icc,
		                  log_reml, converged, num_obs, num_subjects, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, datasetID, res.SubjectVar, res.ResidVar, res.ICC,
		res.LogREML, boolToInt(res.Converged), res.NumObs, res.NumSubjects, now); err != nil {
		return fmt.Errorf("failed to insert fit: %w", err)
	}

	for i, c := range res.Coefficients {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fit_coefficients (fit_id, position, name, estimate, std_err, z, p)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, i, c.Name, c.Estimate, c.StdErr, c.Z, c.P); err != nil {
			return fmt.Errorf("failed to insert coefficient %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fit: %w", err)
	}
	return nil
}

// GetFit loads a stored fit by ID, including its coefficients.
func (s *Store) GetFit(ctx context.Context, id string) (*FitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.scanFit(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadCoefficients(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListFits returns stored fits, newest first. If datasetID is non-empty,
// only fits for that dataset are returned. Coefficients are included.
func (s *Store) ListFits(ctx context.Context, datasetID string) ([]FitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, dataset_id, subject_var, resid_var, icc,
		       log_reml, converged, num_obs, num_subjects, created_at
		FROM fits
	`
	var args []any
	if datasetID != "" {
		query += ` WHERE dataset_id = ?`
		args = append(args, datasetID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fits: %w", err)
	}
	defer rows.Close()

	var recs []FitRecord
	for rows.Next() {
		rec, err := scanFitRow(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fits: %w", err)
	}

	for i := range recs {
		if err := s.loadCoefficients(ctx, &recs[i]); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// scanFit loads a single fit row without coefficients.
func (s *Store) scanFit(ctx context.Context, id string) (*FitRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, dataset_id, subject_var, resid_var, icc,
		       log_reml, converged, num_obs, num_subjects, created_at
		FROM fits WHERE id = ?
	`, id)

	rec, err := scanFitRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fit %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFitRow(row rowScanner) (*FitRecord, error) {
	var rec FitRecord
	var converged int
	var createdAt string
	if err := row.Scan(&rec.ID, &rec.DatasetID,
		&rec.Result.SubjectVar, &rec.Result.ResidVar, &rec.Result.ICC,
		&rec.Result.LogREML, &converged, &rec.Result.NumObs, &rec.Result.NumSubjects,
		&createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan fit row: %w", err)
	}
	rec.Result.Converged = converged != 0
	rec.Result.SubjectSD = sqrtNonNeg(rec.Result.SubjectVar)
	rec.Result.ResidSD = sqrtNonNeg(rec.Result.ResidVar)
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

func (s *Store) loadCoefficients(ctx context.Context, rec *FitRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, estimate, std_err, z, p
		FROM fit_coefficients
		WHERE fit_id = ?
		ORDER BY position
	`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to load coefficients for %s: %w", rec.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c mixedmodel.Coefficient
		if err := rows.Scan(&c.Name, &c.Estimate, &c.StdErr, &c.Z, &c.P); err != nil {
			return fmt.Errorf("failed to scan coefficient: %w", err)
		}
		rec.Result.Coefficients = append(rec.Result.Coefficients, c)
	}
	return rows.Err()
}

// ScenarioJSON marshals a scenario value for storage alongside a dataset.
func ScenarioJSON(scenario any) ([]byte, error) {
	if scenario == nil {
		return nil, nil
	}
	data, err := json.Marshal(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenario: %w", err)
	}
	return data, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqrtNonNeg(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
