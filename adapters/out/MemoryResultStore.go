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
	"sort"
	"sync"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"time"
)

// MemoryResultStore keeps results in process. It enforces the same
// idempotence and status ordering rules as the SQL store.
type MemoryResultStore struct {
	mu       sync.RWMutex
	results  map[string]entities.AggregatedResult
	byFile   map[string][]string
	statuses map[string]entities.JobStatusRecord
}

func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		results:  make(map[string]entities.AggregatedResult),
		byFile:   make(map[string][]string),
		statuses: make(map[string]entities.JobStatusRecord),
	}
}

func (m *MemoryResultStore) Put(_ context.Context, result entities.AggregatedResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, exists := m.results[result.JobID]
	if exists && previous.FileID != result.FileID {
		m.byFile[previous.FileID] = remove(m.byFile[previous.FileID], result.JobID)
	}

	if !exists || previous.FileID != result.FileID {
		m.byFile[result.FileID] = append(m.byFile[result.FileID], result.JobID)
	}

	m.results[result.JobID] = result

	return nil
}

func (m *MemoryResultStore) Get(_ context.Context, jobID string) (entities.AggregatedResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.results[jobID]
	if !ok {
		return entities.AggregatedResult{}, out.ErrResultNotFound
	}

	return result, nil
}

func (m *MemoryResultStore) ListByFile(_ context.Context, fileID string) ([]entities.AggregatedResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byFile[fileID]
	results := make([]entities.AggregatedResult, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		results = append(results, m.results[ids[i]])
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	return results, nil
}

func (m *MemoryResultStore) PutJobStatus(_ context.Context, jobID string, status entities.JobStatus, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.statuses[jobID]; ok && !current.Status.CanAdvanceTo(status) {
		return nil
	}

	m.statuses[jobID] = entities.JobStatusRecord{JobID: jobID, Status: status, Reason: reason, UpdatedAt: at.UnixMilli()}

	return nil
}

func (m *MemoryResultStore) GetJobStatus(_ context.Context, jobID string) (entities.JobStatusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.statuses[jobID]
	if !ok {
		return entities.JobStatusRecord{}, out.ErrJobNotFound
	}

	return record, nil
}

func remove(ids []string, id string) []string {
	kept := ids[:0]
	for _, current := range ids {
		if current != id {
			kept = append(kept, current)
		}
	}

	return kept
}
