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
	"errors"
	"fmt"
	"sync"
	"testing"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedJob(id string, priority int) entities.ScanJob {
	return entities.ScanJob{ID: id, FileID: "file-" + id, Tier: "basic", Priority: priority}
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := NewRetryPolicy(5, time.Second, 3*time.Second)

	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, 3*time.Second, policy.Delay(3))
	assert.Equal(t, 3*time.Second, policy.Delay(4))

	assert.False(t, policy.Exhausted(4))
	assert.True(t, policy.Exhausted(5))
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy := NewRetryPolicy(0, 0, 0)

	assert.Equal(t, DefaultMaxAttempts, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.BaseDelay)
	assert.Equal(t, time.Minute, policy.MaxDelay)
}

func TestMemoryJobQueueOrdersByPriorityThenSubmission(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryJobQueue(NewRetryPolicy(3, time.Second, time.Minute))

	require.NoError(t, queue.Enqueue(ctx, queuedJob("low-1", 5)))
	require.NoError(t, queue.Enqueue(ctx, queuedJob("high", 1)))
	require.NoError(t, queue.Enqueue(ctx, queuedJob("low-2", 5)))
	require.NoError(t, queue.Enqueue(ctx, queuedJob("mid", 3)))

	var order []string
	for {
		claimed, err := queue.Claim(ctx)
		if errors.Is(err, out.ErrQueueEmpty) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 1, claimed.Attempt)
		order = append(order, claimed.Job.ID)
	}

	assert.Equal(t, []string{"high", "mid", "low-1", "low-2"}, order)
}

func TestMemoryJobQueueRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryJobQueue(NewRetryPolicy(3, time.Second, time.Minute))

	require.NoError(t, queue.Enqueue(ctx, queuedJob("a", 1)))
	assert.Error(t, queue.Enqueue(ctx, queuedJob("a", 1)))
}

func TestMemoryJobQueueClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryJobQueue(NewRetryPolicy(3, time.Second, time.Minute))

	for i := 0; i < 100; i++ {
		require.NoError(t, queue.Enqueue(ctx, queuedJob(fmt.Sprintf("job-%d", i), i%4)))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, err := queue.Claim(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[claimed.Job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 100)
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}
}

func TestMemoryJobQueueRetryWaitsForBackoff(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	queue := NewMemoryJobQueue(NewRetryPolicy(2, 10*time.Second, time.Minute))
	queue.now = func() time.Time { return now }

	require.NoError(t, queue.Enqueue(ctx, queuedJob("a", 1)))
	claimed, err := queue.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, queue.Retry(ctx, claimed.Job.ID, errors.New("download failed")))

	counts, err := queue.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Waiting)
	assert.Equal(t, int64(0), counts.Active)

	_, err = queue.Claim(ctx)
	assert.ErrorIs(t, err, out.ErrQueueEmpty)

	now = now.Add(10 * time.Second)
	claimed, err = queue.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, claimed.Attempt)

	assert.ErrorIs(t, queue.Retry(ctx, "a", errors.New("again")), out.ErrRetriesExhausted)
	require.NoError(t, queue.Fail(ctx, "a", errors.New("again")))

	counts, err = queue.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.QueueCounts{Failed: 1}, counts)
}

func TestMemoryJobQueueAckCounts(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryJobQueue(NewRetryPolicy(3, time.Second, time.Minute))

	require.NoError(t, queue.Enqueue(ctx, queuedJob("a", 1)))
	require.NoError(t, queue.Enqueue(ctx, queuedJob("b", 1)))

	_, err := queue.Claim(ctx)
	require.NoError(t, err)

	counts, err := queue.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.QueueCounts{Waiting: 1, Active: 1}, counts)

	require.NoError(t, queue.Ack(ctx, "a"))
	assert.ErrorIs(t, queue.Ack(ctx, "a"), out.ErrJobNotFound)

	counts, err = queue.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.QueueCounts{Waiting: 1, Completed: 1}, counts)
}

func TestMemoryJobQueueCancel(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	queue := NewMemoryJobQueue(NewRetryPolicy(3, time.Second, time.Minute))
	queue.now = func() time.Time { return now }

	require.NoError(t, queue.Enqueue(ctx, queuedJob("waiting", 2)))
	require.NoError(t, queue.Enqueue(ctx, queuedJob("active", 1)))

	claimed, err := queue.Claim(ctx)
	require.NoError(t, err)
	require.Equal(t, "active", claimed.Job.ID)

	assert.ErrorIs(t, queue.Cancel(ctx, "active"), out.ErrNotCancellable)
	assert.ErrorIs(t, queue.Cancel(ctx, "unknown"), out.ErrJobNotFound)
	require.NoError(t, queue.Cancel(ctx, "waiting"))

	require.NoError(t, queue.Retry(ctx, "active", errors.New("boom")))
	assert.ErrorIs(t, queue.Cancel(ctx, "active"), out.ErrNotCancellable)

	now = now.Add(time.Minute)
	claimed, err = queue.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, "active", claimed.Job.ID)

	_, err = queue.Claim(ctx)
	assert.ErrorIs(t, err, out.ErrQueueEmpty)
}
