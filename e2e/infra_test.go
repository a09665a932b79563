//go:build e2e

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
package e2e

import (
	"context"
	"errors"
	"time"

	adaptersout "tier-scanner/adapters/out"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"

	"github.com/google/uuid"
)

func (suite *E2E) newRedisQueue(prefix string, lease time.Duration) (*adaptersout.RedisJobQueue, *adaptersout.AWSCache) {
	cache := adaptersout.NewCache(suite.redisURL, "", false)
	policy := adaptersout.NewRetryPolicy(2, 50*time.Millisecond, 50*time.Millisecond)

	return adaptersout.NewRedisJobQueue(cache.Client(), cache, prefix+"-"+uuid.NewString(), policy, lease, logging.NewDiscardLog()), cache
}

func job(id string, priority int) entities.ScanJob {
	return entities.ScanJob{ID: id, FileID: "file-" + id, FilePath: id + ".txt", Tier: "free", Priority: priority, SubmittedAt: time.Now()}
}

func (suite *E2E) TestRedisQueueOrdering() {
	ctx := context.Background()
	queue, cache := suite.newRedisQueue("order", time.Minute)
	defer cache.Close()

	suite.Require().NoError(queue.Enqueue(ctx, job("low-1", 100)))
	suite.Require().NoError(queue.Enqueue(ctx, job("high", 10)))
	suite.Require().NoError(queue.Enqueue(ctx, job("low-2", 100)))
	suite.Error(queue.Enqueue(ctx, job("high", 10)))

	var order []string
	for i := 0; i < 3; i++ {
		claimed, err := queue.Claim(ctx)
		suite.Require().NoError(err)
		suite.Equal(1, claimed.Attempt)
		order = append(order, claimed.Job.ID)
	}

	suite.Equal([]string{"high", "low-1", "low-2"}, order)

	_, err := queue.Claim(ctx)
	suite.ErrorIs(err, out.ErrQueueEmpty)

	suite.Require().NoError(queue.Ack(ctx, "high"))
	suite.Require().NoError(queue.Fail(ctx, "low-1", errors.New("boom")))

	counts, err := queue.Counts(ctx)
	suite.Require().NoError(err)
	suite.Equal(entities.QueueCounts{Waiting: 0, Active: 1, Completed: 1, Failed: 1}, counts)
}

func (suite *E2E) TestRedisQueueRetryAndCancel() {
	ctx := context.Background()
	queue, cache := suite.newRedisQueue("retry", time.Minute)
	defer cache.Close()

	suite.Require().NoError(queue.Enqueue(ctx, job("retried", 1)))
	suite.Require().NoError(queue.Enqueue(ctx, job("cancelled", 5)))

	claimed, err := queue.Claim(ctx)
	suite.Require().NoError(err)
	suite.Equal("retried", claimed.Job.ID)

	suite.Require().NoError(queue.Retry(ctx, "retried", errors.New("store down")))
	suite.Require().NoError(queue.Cancel(ctx, "cancelled"))
	suite.ErrorIs(queue.Cancel(ctx, "cancelled"), out.ErrJobNotFound)

	suite.Require().Eventually(func() bool {
		claimed, err = queue.Claim(ctx)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	suite.Equal("retried", claimed.Job.ID)
	suite.Equal(2, claimed.Attempt)
	suite.ErrorIs(queue.Cancel(ctx, "retried"), out.ErrNotCancellable)
	suite.ErrorIs(queue.Retry(ctx, "retried", errors.New("store down")), out.ErrRetriesExhausted)
}

func (suite *E2E) TestRedisQueueReapsExpiredLeases() {
	ctx := context.Background()
	queue, cache := suite.newRedisQueue("reaper", 100*time.Millisecond)
	defer cache.Close()

	suite.Require().NoError(queue.Enqueue(ctx, job("crashed", 1)))
	_, err := queue.Claim(ctx)
	suite.Require().NoError(err)

	time.Sleep(200 * time.Millisecond)

	reaped, err := queue.ReapExpired(ctx)
	suite.Require().NoError(err)
	suite.Equal(1, reaped)

	suite.Require().Eventually(func() bool {
		claimed, err := queue.Claim(ctx)
		return err == nil && claimed.Job.ID == "crashed" && claimed.Attempt == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func (suite *E2E) TestPostgresResultStore() {
	ctx := context.Background()

	db, err := adaptersout.ConnectSQL(ctx, adaptersout.DriverPostgres, suite.postgresDSN)
	suite.Require().NoError(err)
	defer db.Close()

	store, err := adaptersout.NewSQLResultStore(ctx, db, adaptersout.DriverPostgres)
	suite.Require().NoError(err)

	fileID := "file-" + uuid.NewString()
	base := time.Now().Truncate(time.Millisecond)
	first := entities.AggregatedResult{JobID: uuid.NewString(), FileID: fileID, Status: entities.Clean, ThreatLevel: entities.ThreatClean, CreatedAt: base}
	second := entities.AggregatedResult{JobID: uuid.NewString(), FileID: fileID, Status: entities.Infected, ThreatLevel: entities.ThreatHigh, CreatedAt: base.Add(time.Second)}

	suite.Require().NoError(store.Put(ctx, first))
	suite.Require().NoError(store.Put(ctx, first))
	suite.Require().NoError(store.Put(ctx, second))

	history, err := store.ListByFile(ctx, fileID)
	suite.Require().NoError(err)
	suite.Require().Len(history, 2)
	suite.Equal(second.JobID, history[0].JobID)
	suite.Equal(entities.Infected, history[0].Status)

	_, err = store.Get(ctx, uuid.NewString())
	suite.ErrorIs(err, out.ErrResultNotFound)

	suite.Require().NoError(store.PutJobStatus(ctx, first.JobID, entities.Scanning, "", base))
	suite.Require().NoError(store.PutJobStatus(ctx, first.JobID, entities.Completed, "", base))
	suite.Require().NoError(store.PutJobStatus(ctx, first.JobID, entities.Queued, "", base))

	record, err := store.GetJobStatus(ctx, first.JobID)
	suite.Require().NoError(err)
	suite.Equal(entities.Completed, record.Status)
}

func (suite *E2E) TestRedisQueueSettlesJobsOutOfAttempts() {
	ctx := context.Background()
	cache := adaptersout.NewCache(suite.redisURL, "", false)
	defer cache.Close()

	policy := adaptersout.NewRetryPolicy(1, 50*time.Millisecond, 50*time.Millisecond)
	queue := adaptersout.NewRedisJobQueue(cache.Client(), cache, "exhausted-"+uuid.NewString(), policy, 100*time.Millisecond, logging.NewDiscardLog())

	var settled []entities.ScanJob
	var causes []error
	queue.OnExhausted(func(_ context.Context, job entities.ScanJob, cause error) {
		settled = append(settled, job)
		causes = append(causes, cause)
	})

	suite.Require().NoError(queue.Enqueue(ctx, job("abandoned", 1)))
	_, err := queue.Claim(ctx)
	suite.Require().NoError(err)

	time.Sleep(200 * time.Millisecond)

	reaped, err := queue.ReapExpired(ctx)
	suite.Require().NoError(err)
	suite.Equal(1, reaped)

	suite.Require().Len(settled, 1)
	suite.Equal("abandoned", settled[0].ID)
	suite.Equal("file-abandoned", settled[0].FileID)
	suite.EqualError(causes[0], "lease expired")

	counts, err := queue.Counts(ctx)
	suite.Require().NoError(err)
	suite.Equal(entities.QueueCounts{Failed: 1}, counts)
}

func (suite *E2E) TestRedisQueueRenewedLeaseIsNotReaped() {
	ctx := context.Background()
	queue, cache := suite.newRedisQueue("renew", 150*time.Millisecond)
	defer cache.Close()

	suite.Require().NoError(queue.Enqueue(ctx, job("long-scan", 1)))
	_, err := queue.Claim(ctx)
	suite.Require().NoError(err)

	for i := 0; i < 4; i++ {
		time.Sleep(75 * time.Millisecond)
		suite.Require().NoError(queue.Renew(ctx, "long-scan"))
	}

	reaped, err := queue.ReapExpired(ctx)
	suite.Require().NoError(err)
	suite.Equal(0, reaped)

	_, err = queue.Claim(ctx)
	suite.ErrorIs(err, out.ErrQueueEmpty)

	suite.Require().NoError(queue.Ack(ctx, "long-scan"))
	suite.ErrorIs(queue.Renew(ctx, "long-scan"), out.ErrJobNotFound)
}
