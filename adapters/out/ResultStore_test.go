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
	"path/filepath"
	"testing"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultStores(t *testing.T) []struct {
	name  string
	store out.ResultStore
} {
	t.Helper()

	ctx := context.Background()
	db, err := ConnectSQL(ctx, DriverSQLite, filepath.Join(t.TempDir(), "results.db")+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)

	sqlStore, err := NewSQLResultStore(ctx, db, DriverSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { sqlStore.Close() })

	return []struct {
		name  string
		store out.ResultStore
	}{
		{"memory", NewMemoryResultStore()},
		{"sqlite", sqlStore},
	}
}

func sampleResult(jobID, fileID string, createdAt time.Time) entities.AggregatedResult {
	return entities.AggregatedResult{
		JobID:       jobID,
		FileID:      fileID,
		FilePath:    "s3://bucket/" + fileID,
		FileHash:    "d41d8cd98f00b204e9800998ecf8427e",
		Tier:        "basic",
		Status:      entities.Clean,
		ThreatLevel: entities.ThreatClean,
		Confidence:  100,
		Findings:    []entities.Finding{},
		Scanners:    []entities.ScannerID{entities.BasicValidation},
		ScanTimeMs:  12,
		CreatedAt:   createdAt,
	}
}

func TestResultStorePutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	for _, tc := range resultStores(t) {
		t.Run(tc.name, func(t *testing.T) {
			first := sampleResult("job-1", "file-1", now)
			require.NoError(t, tc.store.Put(ctx, first))

			second := first
			second.Status = entities.Infected
			second.ThreatLevel = entities.ThreatHigh
			require.NoError(t, tc.store.Put(ctx, second))

			got, err := tc.store.Get(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, entities.Infected, got.Status)
			assert.Equal(t, entities.ThreatHigh, got.ThreatLevel)

			history, err := tc.store.ListByFile(ctx, "file-1")
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestResultStoreGetMissing(t *testing.T) {
	for _, tc := range resultStores(t) {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.store.Get(context.Background(), "missing")
			assert.ErrorIs(t, err, out.ErrResultNotFound)

			history, err := tc.store.ListByFile(context.Background(), "missing")
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestResultStoreHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	for _, tc := range resultStores(t) {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.store.Put(ctx, sampleResult("job-b", "file-1", base.Add(time.Minute))))
			require.NoError(t, tc.store.Put(ctx, sampleResult("job-a", "file-1", base)))
			require.NoError(t, tc.store.Put(ctx, sampleResult("job-c", "file-1", base.Add(2*time.Minute))))
			require.NoError(t, tc.store.Put(ctx, sampleResult("job-x", "file-2", base)))

			history, err := tc.store.ListByFile(ctx, "file-1")
			require.NoError(t, err)
			require.Len(t, history, 3)
			assert.Equal(t, "job-c", history[0].JobID)
			assert.Equal(t, "job-b", history[1].JobID)
			assert.Equal(t, "job-a", history[2].JobID)
		})
	}
}

func TestResultStoreJobStatusIsMonotonic(t *testing.T) {
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000)

	for _, tc := range resultStores(t) {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.store.GetJobStatus(ctx, "job-1")
			assert.ErrorIs(t, err, out.ErrJobNotFound)

			require.NoError(t, tc.store.PutJobStatus(ctx, "job-1", entities.Scanning, "", at))
			require.NoError(t, tc.store.PutJobStatus(ctx, "job-1", entities.Queued, "", at.Add(time.Second)))

			record, err := tc.store.GetJobStatus(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, entities.Scanning, record.Status)
			assert.Equal(t, at.UnixMilli(), record.UpdatedAt)

			require.NoError(t, tc.store.PutJobStatus(ctx, "job-1", entities.Scanning, "retry", at.Add(2*time.Second)))
			require.NoError(t, tc.store.PutJobStatus(ctx, "job-1", entities.Completed, "", at.Add(3*time.Second)))
			require.NoError(t, tc.store.PutJobStatus(ctx, "job-1", entities.Failed, "late", at.Add(4*time.Second)))

			record, err = tc.store.GetJobStatus(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, entities.Completed, record.Status)
			assert.Empty(t, record.Reason)
			assert.Equal(t, at.Add(3*time.Second).UnixMilli(), record.UpdatedAt)
		})
	}
}

func TestSQLResultStoreRebind(t *testing.T) {
	postgres := &SQLResultStore{driver: DriverPostgres}
	sqlite := &SQLResultStore{driver: DriverSQLite}

	query := "SELECT a FROM t WHERE b = ? AND c = ?"
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", postgres.rebind(query))
	assert.Equal(t, query, sqlite.rebind(query))
}

func TestNewSQLResultStoreRejectsUnknownDriver(t *testing.T) {
	_, err := NewSQLResultStore(context.Background(), nil, "mysql")
	assert.Error(t, err)
}
