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

package stats

import (
	"errors"
	"sync"
	"testing"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/services/admission"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecord(t *testing.T) {
	tracker := NewTracker()
	tracker.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	tracker.Record(entities.AggregatedResult{Status: entities.Clean, ScanTimeMs: 100})
	tracker.Record(entities.AggregatedResult{Status: entities.Infected, ScanTimeMs: 300})
	tracker.Record(entities.AggregatedResult{Status: entities.Suspicious, ScanTimeMs: 200})
	tracker.Record(entities.AggregatedResult{Status: entities.EngineErr, ScanTimeMs: 0})

	snapshot := tracker.Snapshot()
	assert.Equal(t, int64(4), snapshot.Total)
	assert.Equal(t, int64(1), snapshot.Clean)
	assert.Equal(t, int64(1), snapshot.Infected)
	assert.Equal(t, int64(1), snapshot.Suspicious)
	assert.Equal(t, int64(1), snapshot.Errors)
	assert.InDelta(t, 150.0, snapshot.AverageScanTimeMs, 0.001)
	assert.Equal(t, tracker.now(), snapshot.LastUpdate)
}

func TestTrackerConcurrentRecord(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Record(entities.AggregatedResult{Status: entities.Clean, ScanTimeMs: 10})
		}()
	}
	wg.Wait()

	snapshot := tracker.Snapshot()
	assert.Equal(t, int64(50), snapshot.Total)
	assert.Equal(t, int64(50), snapshot.Clean)
	assert.InDelta(t, 10.0, snapshot.AverageScanTimeMs, 0.001)
}

func TestTrackerQuota(t *testing.T) {
	t.Run("admission stops at the limit", func(t *testing.T) {
		tracker := NewTracker()

		for i := 0; i < 3; i++ {
			require.NoError(t, tracker.TryAdmit("caller", "2024-03-01", 3))
		}

		err := tracker.TryAdmit("caller", "2024-03-01", 3)
		var quotaErr *admission.QuotaExceededError
		require.True(t, errors.As(err, &quotaErr))
		assert.Equal(t, 3, quotaErr.Limit)
		assert.ErrorIs(t, err, admission.ErrAdmissionRejected)
		assert.Equal(t, 3, tracker.Admitted("caller", "2024-03-01"))
	})

	t.Run("callers and days are counted apart", func(t *testing.T) {
		tracker := NewTracker()

		require.NoError(t, tracker.TryAdmit("a", "2024-03-01", 1))
		require.NoError(t, tracker.TryAdmit("b", "2024-03-01", 1))
		require.Error(t, tracker.TryAdmit("a", "2024-03-01", 1))
		require.NoError(t, tracker.TryAdmit("a", "2024-03-02", 1))

		assert.Equal(t, 0, tracker.Admitted("b", "2024-03-01"), "previous days are pruned")
	})

	t.Run("release gives the slot back", func(t *testing.T) {
		tracker := NewTracker()

		require.NoError(t, tracker.TryAdmit("caller", "2024-03-01", 1))
		tracker.ReleaseAdmission("caller", "2024-03-01")
		require.NoError(t, tracker.TryAdmit("caller", "2024-03-01", 1))
	})

	t.Run("concurrent admissions never exceed the limit", func(t *testing.T) {
		tracker := NewTracker()

		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if tracker.TryAdmit("caller", "2024-03-01", 10) == nil {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, admitted)
	})
}
