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
	"container/heap"
	"context"
	"fmt"
	"sync"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"time"
)

type memoryEntry struct {
	job      entities.ScanJob
	attempts int
	seq      uint64
	readyAt  time.Time
	index    int
}

type jobHeap []*memoryEntry

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority < h[j].job.Priority
	}

	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	entry := x.(*memoryEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]

	return entry
}

// MemoryJobQueue is the in process queue. It is lost on restart.
type MemoryJobQueue struct {
	mu        sync.Mutex
	waiting   jobHeap
	queued    map[string]*memoryEntry
	delayed   map[string]*memoryEntry
	active    map[string]*memoryEntry
	seq       uint64
	completed int64
	failed    int64
	policy    RetryPolicy
	now       func() time.Time
}

func NewMemoryJobQueue(policy RetryPolicy) *MemoryJobQueue {
	return &MemoryJobQueue{
		queued:  make(map[string]*memoryEntry),
		delayed: make(map[string]*memoryEntry),
		active:  make(map[string]*memoryEntry),
		policy:  policy,
		now:     time.Now,
	}
}

func (q *MemoryJobQueue) Enqueue(_ context.Context, job entities.ScanJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.known(job.ID) {
		return fmt.Errorf("job already queued. jobId: %s", job.ID)
	}

	q.seq++
	entry := &memoryEntry{job: job, seq: q.seq}
	heap.Push(&q.waiting, entry)
	q.queued[job.ID] = entry

	return nil
}

func (q *MemoryJobQueue) Claim(_ context.Context) (entities.QueuedJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.promote()

	if q.waiting.Len() == 0 {
		return entities.QueuedJob{}, out.ErrQueueEmpty
	}

	entry := heap.Pop(&q.waiting).(*memoryEntry)
	delete(q.queued, entry.job.ID)
	entry.attempts++
	q.active[entry.job.ID] = entry

	return entities.QueuedJob{Job: entry.job, Attempt: entry.attempts}, nil
}

func (q *MemoryJobQueue) Ack(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.active[jobID]; !ok {
		return out.ErrJobNotFound
	}

	delete(q.active, jobID)
	q.completed++

	return nil
}

func (q *MemoryJobQueue) Retry(_ context.Context, jobID string, _ error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.active[jobID]
	if !ok {
		return out.ErrJobNotFound
	}

	if q.policy.Exhausted(entry.attempts) {
		return out.ErrRetriesExhausted
	}

	delete(q.active, jobID)
	entry.readyAt = q.now().Add(q.policy.Delay(entry.attempts))
	q.delayed[jobID] = entry

	return nil
}

func (q *MemoryJobQueue) Fail(_ context.Context, jobID string, _ error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.active[jobID]; !ok {
		return out.ErrJobNotFound
	}

	delete(q.active, jobID)
	q.failed++

	return nil
}

func (q *MemoryJobQueue) Cancel(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.queued[jobID]
	if !ok {
		if q.known(jobID) {
			return out.ErrNotCancellable
		}

		return out.ErrJobNotFound
	}

	// A retried job already started scanning once.
	if entry.attempts > 0 {
		return out.ErrNotCancellable
	}

	heap.Remove(&q.waiting, entry.index)
	delete(q.queued, jobID)

	return nil
}

func (q *MemoryJobQueue) Counts(_ context.Context) (entities.QueueCounts, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return entities.QueueCounts{
		Waiting:   int64(q.waiting.Len() + len(q.delayed)),
		Active:    int64(len(q.active)),
		Completed: q.completed,
		Failed:    q.failed,
	}, nil
}

// promote moves retried jobs whose delay elapsed back to the waiting heap.
func (q *MemoryJobQueue) promote() {
	now := q.now()
	for id, entry := range q.delayed {
		if entry.readyAt.After(now) {
			continue
		}

		delete(q.delayed, id)
		heap.Push(&q.waiting, entry)
		q.queued[id] = entry
	}
}

func (q *MemoryJobQueue) known(jobID string) bool {
	_, queued := q.queued[jobID]
	_, delayed := q.delayed[jobID]
	_, active := q.active[jobID]

	return queued || delayed || active
}
