/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package out

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	pingTimeout    = 5 * time.Second
)

//go:embed schema/results.sql
var resultsSchema string

const upsertResult = `
INSERT INTO scan_results
(job_id, file_id, file_path, file_hash, tier, status, threat_level, scanners, payload, scan_time_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (job_id) DO UPDATE SET
 file_id = excluded.file_id,
 file_path = excluded.file_path,
 file_hash = excluded.file_hash,
 tier = excluded.tier,
 status = excluded.status,
 threat_level = excluded.threat_level,
 scanners = excluded.scanners,
 payload = excluded.payload,
 scan_time_ms = excluded.scan_time_ms,
 created_at = excluded.created_at`

// The WHERE clause keeps statuses monotonic: terminal rows never change and
// a status never moves back to a lower rank.
const upsertStatus = `
INSERT INTO job_statuses (job_id, status, status_rank, reason, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (job_id) DO UPDATE SET
 status = excluded.status,
 status_rank = excluded.status_rank,
 reason = excluded.reason,
 updated_at = excluded.updated_at
WHERE job_statuses.status_rank <= excluded.status_rank AND job_statuses.status_rank < 2`

// SQLResultStore persists results in postgres or sqlite.
type SQLResultStore struct {
	db     *sql.DB
	driver string
}

func ConnectSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// sqlite serializes writers, a single connection avoids busy errors.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database. err: %w", driver, err)
	}

	return db, nil
}

func NewSQLResultStore(ctx context.Context, db *sql.DB, driver string) (*SQLResultStore, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	store := &SQLResultStore{db: db, driver: driver}
	if err := store.migrate(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLResultStore) migrate(ctx context.Context) error {
	for _, statement := range strings.Split(resultsSchema, ";") {
		if strings.TrimSpace(statement) == "" {
			continue
		}

		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema. err: %w", err)
		}
	}

	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLResultStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var builder strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			builder.WriteString("$" + strconv.Itoa(n))
			continue
		}
		builder.WriteRune(r)
	}

	return builder.String()
}

func (s *SQLResultStore) Put(ctx context.Context, result entities.AggregatedResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result. jobId: %s, err: %w", result.JobID, err)
	}

	scanners := make([]string, 0, len(result.Scanners))
	for _, scanner := range result.Scanners {
		scanners = append(scanners, string(scanner))
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, s.rebind(upsertResult),
		result.JobID, result.FileID, result.FilePath, result.FileHash, result.Tier,
		string(result.Status), string(result.ThreatLevel), strings.Join(scanners, ","),
		string(payload), result.ScanTimeMs, createdAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result. jobId: %s, err: %w", result.JobID, err)
	}

	return nil
}

func (s *SQLResultStore) Get(ctx context.Context, jobID string) (entities.AggregatedResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT payload FROM scan_results WHERE job_id = ?`), jobID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.AggregatedResult{}, out.ErrResultNotFound
	}

	if err != nil {
		return entities.AggregatedResult{}, fmt.Errorf("failed to load result. jobId: %s, err: %w", jobID, err)
	}

	return decodeResult(payload)
}

func (s *SQLResultStore) ListByFile(ctx context.Context, fileID string) ([]entities.AggregatedResult, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT payload FROM scan_results WHERE file_id = ? ORDER BY created_at DESC, job_id DESC`), fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results. fileId: %s, err: %w", fileID, err)
	}
	defer rows.Close()

	results := make([]entities.AggregatedResult, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		result, err := decodeResult(payload)
		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}

	return results, rows.Err()
}

func (s *SQLResultStore) PutJobStatus(ctx context.Context, jobID string, status entities.JobStatus, reason string, at time.Time) error {
	if status.Rank() < 0 {
		return fmt.Errorf("unknown job status %q", status)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(upsertStatus), jobID, string(status), status.Rank(), reason, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save job status. jobId: %s, err: %w", jobID, err)
	}

	return nil
}

func (s *SQLResultStore) GetJobStatus(ctx context.Context, jobID string) (entities.JobStatusRecord, error) {
	record := entities.JobStatusRecord{JobID: jobID}
	var status string

	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT status, reason, updated_at FROM job_statuses WHERE job_id = ?`), jobID).
		Scan(&status, &record.Reason, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.JobStatusRecord{}, out.ErrJobNotFound
	}

	if err != nil {
		return entities.JobStatusRecord{}, fmt.Errorf("failed to load job status. jobId: %s, err: %w", jobID, err)
	}

	record.Status = entities.JobStatus(status)

	return record, nil
}

func (s *SQLResultStore) Close() error {
	return s.db.Close()
}

func decodeResult(payload string) (entities.AggregatedResult, error) {
	var result entities.AggregatedResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return entities.AggregatedResult{}, fmt.Errorf("failed to decode result. err: %w", err)
	}

	return result, nil
}
