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

package notification

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/domain/services/stats"
	"tier-scanner/logging"
	"tier-scanner/metrics"
	"tier-scanner/mocks"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroadcaster(t *testing.T, source StatsSource, buffer int) *Broadcaster {
	t.Helper()

	scope, _, _ := metrics.NewNoopScope()
	return NewBroadcaster(source, buffer, scope, logging.NewDiscardLog())
}

func result(jobID string, status entities.EngineStatus) entities.AggregatedResult {
	return entities.AggregatedResult{JobID: jobID, FileID: "file-" + jobID, FilePath: "s3://uploads/dir/" + jobID + ".exe", Tier: "premium", Status: status, ScanTimeMs: 10}
}

func TestSubscriberReceivesStatsFirst(t *testing.T) {
	tracker := stats.NewTracker()
	tracker.Record(result("a", entities.Clean))

	broadcaster := newBroadcaster(t, tracker, 4)
	subscriber, err := broadcaster.Subscribe()
	require.NoError(t, err)

	progress := entities.NewProgressEvent(entities.ScanJob{ID: "b"}, entities.HeuristicScanner, 50)
	assert.Equal(t, 1, broadcaster.Publish(&progress))

	first := <-subscriber.Events()
	assert.Equal(t, entities.StatsUpdate, first.Type)
	assert.Equal(t, int64(1), first.Stats.Total)

	second := <-subscriber.Events()
	assert.Equal(t, entities.ScanProgress, second.Type)
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	broadcaster := newBroadcaster(t, stats.NewTracker(), 16)

	slow, err := broadcaster.Subscribe()
	require.NoError(t, err)
	fast, err := broadcaster.Subscribe()
	require.NoError(t, err)

	var received []*entities.Event
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range fast.Events() {
			received = append(received, event)
			if len(received) == 21 {
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		event := entities.NewProgressEvent(entities.ScanJob{ID: "job"}, entities.HeuristicScanner, i*5)
		broadcaster.Publish(&event)
		time.Sleep(time.Millisecond)
	}

	wg.Wait()
	assert.Len(t, received, 21)
	assert.Len(t, slow.Events(), 16)
}

func TestUnsubscribeClosesStream(t *testing.T) {
	broadcaster := newBroadcaster(t, stats.NewTracker(), 4)
	subscriber, err := broadcaster.Subscribe()
	require.NoError(t, err)

	broadcaster.Unsubscribe(subscriber)
	broadcaster.Unsubscribe(subscriber)

	<-subscriber.Events()
	_, open := <-subscriber.Events()
	assert.False(t, open)
	assert.Equal(t, 0, broadcaster.Subscribers())
}

func TestCloseEndsAllStreams(t *testing.T) {
	broadcaster := newBroadcaster(t, stats.NewTracker(), 4)
	first, _ := broadcaster.Subscribe()
	second, _ := broadcaster.Subscribe()

	broadcaster.Close()
	broadcaster.Unsubscribe(first)

	for _, subscriber := range []*Subscriber{first, second} {
		<-subscriber.Events()
		_, open := <-subscriber.Events()
		assert.False(t, open)
	}

	_, err := broadcaster.Subscribe()
	assert.ErrorIs(t, err, ErrBroadcasterClosed)
}

type recordingJob struct {
	mu      sync.Mutex
	updates []string
	globals int
}

func (r *recordingJob) Update(_ context.Context, result entities.AggregatedResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, result.JobID)
}

func (r *recordingJob) UpdateGlobal(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals++
}

func (r *recordingJob) Globals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globals
}

func TestHandlerBroadcastsResultThenStats(t *testing.T) {
	tracker := stats.NewTracker()
	broadcaster := newBroadcaster(t, tracker, 8)
	handler := NewNotificationHandler(broadcaster, tracker, logging.NewDiscardLog())

	subscriber, err := broadcaster.Subscribe()
	require.NoError(t, err)
	<-subscriber.Events()

	tracker.Record(result("a", entities.Infected))
	event := entities.NewResultEvent(result("a", entities.Infected))
	require.NoError(t, handler.Handle(context.Background(), &event, nil))

	published := <-subscriber.Events()
	assert.Equal(t, entities.ScanResult, published.Type)

	statsEvent := <-subscriber.Events()
	assert.Equal(t, entities.StatsUpdate, statsEvent.Type)
	assert.Equal(t, int64(1), statsEvent.Stats.Infected)
}

func TestHandlerProgressOnlyBroadcasts(t *testing.T) {
	tracker := stats.NewTracker()
	broadcaster := newBroadcaster(t, tracker, 8)
	handler := NewNotificationHandler(broadcaster, tracker, logging.NewDiscardLog())

	subscriber, err := broadcaster.Subscribe()
	require.NoError(t, err)
	<-subscriber.Events()

	event := entities.NewProgressEvent(entities.ScanJob{ID: "a"}, entities.RuleScanner, 100)
	require.NoError(t, handler.Handle(context.Background(), &event, nil))

	published := <-subscriber.Events()
	assert.Equal(t, entities.ScanProgress, published.Type)

	select {
	case extra := <-subscriber.Events():
		t.Fatalf("unexpected event %s", extra.Type)
	default:
	}
}

func TestDispatcherRecordsStatsAndJobs(t *testing.T) {
	tracker := stats.NewTracker()
	job := &recordingJob{}
	dispatcher := NewDispatcher(tracker, []Job{job}, logging.NewDiscardLog())

	dispatcher.Record(context.Background(), result("a", entities.Infected))
	dispatcher.Record(context.Background(), result("b", entities.Clean))

	assert.Equal(t, []string{"a", "b"}, job.updates)
	assert.Equal(t, int64(2), tracker.Snapshot().Total)
	assert.Equal(t, int64(1), tracker.Snapshot().Infected)
	assert.Contains(t, dispatcher.Name(), "recordingJob")
}

func TestHandleAsyncFlushesOnShutdown(t *testing.T) {
	job := &recordingJob{}
	dispatcher := NewDispatcher(stats.NewTracker(), []Job{job}, logging.NewDiscardLog())

	ctx, cancel := context.WithCancel(context.Background())
	done := dispatcher.HandleAsync(ctx, time.Hour)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic jobs did not stop")
	}

	assert.Equal(t, 1, job.Globals())
}

func TestHandleAsyncWaitsForQuarantineCopies(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	factory := mocks.NewMockRemoteStorageFactory(mockCtrl)
	source := mocks.NewMockRemoteStorage(mockCtrl)
	destination := mocks.NewMockRemoteStorage(mockCtrl)

	factory.EXPECT().GetRemoteStorage("s3").Return(source, nil)
	factory.EXPECT().GetRemoteStorage("minio").Return(destination, nil)
	source.EXPECT().Get("uploads", "dir/a.exe", gomock.Any()).DoAndReturn(func(_, _ string, writer io.WriterAt) error {
		time.Sleep(100 * time.Millisecond)
		_, err := writer.WriteAt([]byte("infected bytes"), 0)
		return err
	})

	var copied atomic.Bool
	destination.EXPECT().Put("quarantine", gomock.Any(), gomock.Any()).DoAndReturn(func(_, _ string, reader io.Reader) error {
		_, err := io.Copy(io.Discard, reader)
		copied.Store(true)
		return err
	})

	quarantine := NewQuarantineJob(QuarantineConfig{StorageType: "minio", Bucket: "quarantine"}, factory, logging.NewDiscardLog())
	dispatcher := NewDispatcher(stats.NewTracker(), []Job{quarantine}, logging.NewDiscardLog())

	ctx, cancel := context.WithCancel(context.Background())
	done := dispatcher.HandleAsync(ctx, time.Hour)

	// The worker is not held up by the copy.
	dispatcher.Record(ctx, result("a", entities.Infected))
	assert.False(t, copied.Load())

	cancel()
	<-done

	assert.True(t, copied.Load())
}

func TestAuditJobContinuesAfterFailingSink(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	failing := mocks.NewMockAuditSink(mockCtrl)
	healthy := mocks.NewMockAuditSink(mockCtrl)

	failing.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	failing.EXPECT().Name().Return("failing")
	healthy.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)

	NewAuditJob([]out.AuditSink{failing, healthy}, logging.NewDiscardLog()).Update(context.Background(), result("a", entities.Clean))
}

func TestEmergencyServiceBatchesInfected(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	viewer := mocks.NewMockViewer(mockCtrl)

	emergency := NewEmergencyService([]out.Viewer{viewer}, logging.NewDiscardLog())
	emergency.Update(context.Background(), result("a", entities.Infected))
	emergency.Update(context.Background(), result("b", entities.Clean))
	emergency.Update(context.Background(), result("c", entities.Infected))

	viewer.EXPECT().SendMessage(gomock.Any()).DoAndReturn(func(message string) error {
		assert.Contains(t, message, "premium -> 2 (a, c)")
		return nil
	})
	emergency.UpdateGlobal(context.Background())

	// Nothing left to report.
	emergency.UpdateGlobal(context.Background())
}

func TestEmergencyServiceKeepsBatchWhenDeliveryFails(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	viewer := mocks.NewMockViewer(mockCtrl)

	emergency := NewEmergencyService([]out.Viewer{viewer}, logging.NewDiscardLog())
	emergency.Update(context.Background(), result("a", entities.Infected))

	viewer.EXPECT().SendMessage(gomock.Any()).Return(errors.New("webhook down"))
	emergency.UpdateGlobal(context.Background())

	viewer.EXPECT().SendMessage(gomock.Any()).Return(nil)
	emergency.UpdateGlobal(context.Background())
}

func TestStatsReportSavesAndShows(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	repository := mocks.NewMockStatsRepository(mockCtrl)
	viewer := mocks.NewMockViewer(mockCtrl)

	tracker := stats.NewTracker()
	report := NewStatsReport(tracker, repository, []out.Viewer{viewer}, logging.NewDiscardLog())
	report.now = func() time.Time { return time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC) }

	// Empty stats are not reported.
	report.UpdateGlobal(context.Background())

	tracker.Record(result("a", entities.Suspicious))
	repository.EXPECT().Save("2026-10-14", gomock.Any()).Return(nil)
	viewer.EXPECT().Show("Scan report for 2026-10-14", gomock.Any()).Return(nil)
	report.UpdateGlobal(context.Background())
}

func TestQuarantineCopiesInfectedRemoteFile(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	factory := mocks.NewMockRemoteStorageFactory(mockCtrl)
	source := mocks.NewMockRemoteStorage(mockCtrl)
	destination := mocks.NewMockRemoteStorage(mockCtrl)

	factory.EXPECT().GetRemoteStorage("s3").Return(source, nil)
	factory.EXPECT().GetRemoteStorage("minio").Return(destination, nil)
	source.EXPECT().Get("uploads", "dir/a.exe", gomock.Any()).DoAndReturn(func(_, _ string, writer io.WriterAt) error {
		_, err := writer.WriteAt([]byte("infected bytes"), 0)
		return err
	})

	var copied string
	destination.EXPECT().Put("quarantine", "2026-10-14/a/a.exe", gomock.Any()).DoAndReturn(func(_, _ string, reader io.Reader) error {
		var builder strings.Builder
		_, err := io.Copy(&builder, reader)
		copied = builder.String()
		return err
	})

	job := NewQuarantineJob(QuarantineConfig{StorageType: "minio", Bucket: "quarantine"}, factory, logging.NewDiscardLog())
	job.now = func() time.Time { return time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC) }

	job.Update(context.Background(), result("a", entities.Infected))
	job.Wait()

	assert.Equal(t, "infected bytes", copied)
}

func TestQuarantineIgnoresCleanAndLocalFiles(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	factory := mocks.NewMockRemoteStorageFactory(mockCtrl)

	job := NewQuarantineJob(QuarantineConfig{StorageType: "s3", Bucket: "quarantine"}, factory, logging.NewDiscardLog())

	job.Update(context.Background(), result("a", entities.Clean))

	local := result("b", entities.Infected)
	local.FilePath = "uploads/b.exe"
	job.Update(context.Background(), local)
	job.Wait()
}
