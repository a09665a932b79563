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
package services_test

import (
	"context"
	"errors"
	"testing"
	adapters "tier-scanner/adapters/out"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/services"
	"tier-scanner/domain/services/stats"
	"tier-scanner/logging"
	"tier-scanner/mocks"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryService(t *testing.T) (*services.ScanQueryService, *adapters.MemoryResultStore, *mocks.MockJobQueue, *stats.Tracker) {
	ctrl := gomock.NewController(t)
	store := adapters.NewMemoryResultStore()
	queue := mocks.NewMockJobQueue(ctrl)
	tracker := stats.NewTracker()

	return services.NewScanQueryService(store, queue, tracker, logging.NewDiscardLog()), store, queue, tracker
}

func TestGetResultByStatus(t *testing.T) {
	ctx := context.Background()
	query, store, _, _ := newQueryService(t)
	now := time.Now()

	_, err := query.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrScanIDNotFound)

	require.NoError(t, store.PutJobStatus(ctx, "job-1", entities.Queued, "", now))
	_, err = query.GetResult(ctx, "job-1")
	assert.ErrorIs(t, err, services.ErrScanIsWaiting)

	require.NoError(t, store.PutJobStatus(ctx, "job-1", entities.Scanning, "", now))
	_, err = query.GetResult(ctx, "job-1")
	assert.ErrorIs(t, err, services.ErrScanInProgress)

	result := entities.AggregatedResult{JobID: "job-1", FileID: "file-1", Status: entities.Clean, ThreatLevel: entities.ThreatClean, CreatedAt: now}
	require.NoError(t, store.Put(ctx, result))
	require.NoError(t, store.PutJobStatus(ctx, "job-1", entities.Completed, "", now))

	got, err := query.GetResult(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entities.Clean, got.Status)
	assert.Equal(t, "file-1", got.FileID)
}

func TestGetResultCancelledJob(t *testing.T) {
	ctx := context.Background()
	query, store, _, _ := newQueryService(t)

	require.NoError(t, store.PutJobStatus(ctx, "job-2", entities.Failed, "cancelled", time.Now()))

	got, err := query.GetResult(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, entities.EngineErr, got.Status)
	assert.Equal(t, entities.ThreatUnknown, got.ThreatLevel)
	assert.Equal(t, "cancelled", got.Error)
}

func TestGetFileHistoryNeverNil(t *testing.T) {
	ctx := context.Background()
	query, store, _, _ := newQueryService(t)

	history, err := query.GetFileHistory(ctx, "file-x")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	base := time.Now()
	require.NoError(t, store.Put(ctx, entities.AggregatedResult{JobID: "a", FileID: "file-x", CreatedAt: base}))
	require.NoError(t, store.Put(ctx, entities.AggregatedResult{JobID: "b", FileID: "file-x", CreatedAt: base.Add(time.Second)}))

	history, err = query.GetFileHistory(ctx, "file-x")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].JobID)
}

func TestGetQueueStatusAndStats(t *testing.T) {
	ctx := context.Background()
	query, _, queue, tracker := newQueryService(t)

	queue.EXPECT().Counts(gomock.Any()).Return(entities.QueueCounts{Waiting: 3, Active: 1}, nil)
	counts, err := query.GetQueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Waiting)

	queue.EXPECT().Counts(gomock.Any()).Return(entities.QueueCounts{}, errors.New("redis down"))
	_, err = query.GetQueueStatus(ctx)
	assert.Error(t, err)

	tracker.Record(entities.AggregatedResult{Status: entities.Infected, ScanTimeMs: 10})
	snapshot := query.GetStats()
	assert.Equal(t, int64(1), snapshot.Total)
	assert.Equal(t, int64(1), snapshot.Infected)
}
