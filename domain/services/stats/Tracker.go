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
	"sync"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/services/admission"
	"time"
)

type quotaKey struct {
	callerID string
	day      string
}

// Tracker owns the rolling outcome counters and the per caller daily
// admission counters. All access goes through its mutex.
type Tracker struct {
	mu       sync.Mutex
	snapshot entities.StatsSnapshot
	admitted map[quotaKey]int
	lastDay  string
	now      func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{admitted: make(map[quotaKey]int), now: time.Now}
}

// Record counts a finished job. The average scan time is a running mean over
// every recorded job.
func (t *Tracker) Record(result entities.AggregatedResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.Total++
	switch result.Status {
	case entities.Clean:
		t.snapshot.Clean++
	case entities.Suspicious:
		t.snapshot.Suspicious++
	case entities.Infected:
		t.snapshot.Infected++
	default:
		t.snapshot.Errors++
	}

	n := float64(t.snapshot.Total)
	t.snapshot.AverageScanTimeMs += (float64(result.ScanTimeMs) - t.snapshot.AverageScanTimeMs) / n
	t.snapshot.LastUpdate = t.now()
}

func (t *Tracker) Snapshot() entities.StatsSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshot
}

// TryAdmit increments the caller counter for day unless it already reached limit.
func (t *Tracker) TryAdmit(callerID, day string, limit int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(day)

	key := quotaKey{callerID: callerID, day: day}
	if t.admitted[key] >= limit {
		return &admission.QuotaExceededError{CallerID: callerID, Day: day, Limit: limit}
	}

	t.admitted[key]++

	return nil
}

func (t *Tracker) ReleaseAdmission(callerID, day string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := quotaKey{callerID: callerID, day: day}
	if t.admitted[key] <= 1 {
		delete(t.admitted, key)
		return
	}

	t.admitted[key]--
}

func (t *Tracker) Admitted(callerID, day string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.admitted[quotaKey{callerID: callerID, day: day}]
}

// prune drops counters of days before the current one. Days use the
// 2006-01-02 layout, so they compare lexically.
func (t *Tracker) prune(day string) {
	if day <= t.lastDay {
		return
	}

	for key := range t.admitted {
		if key.day < day {
			delete(t.admitted, key)
		}
	}

	t.lastDay = day
}
