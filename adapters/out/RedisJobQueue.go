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
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
	"time"

	"github.com/go-redis/redis/v9"
)

const (
	defaultLease      = 5 * time.Minute
	reaperLockTimeout = 30 * time.Second
	// Jobs with equal priority keep submission order inside the same score band.
	priorityBand = 1e12

	replyOK             = "OK"
	replyNotFound       = "NOT_FOUND"
	replyDuplicated     = "DUPLICATED"
	replyNotCancellable = "NOT_CANCELLABLE"
)

var enqueueScript = redis.NewScript(`
local jobKey = ARGV[1] .. "job:" .. ARGV[2]
if redis.call("EXISTS", jobKey) == 1 then
  return "DUPLICATED"
end
local seq = redis.call("INCR", ARGV[1] .. "seq")
local score = tonumber(ARGV[4]) * tonumber(ARGV[5]) + seq
redis.call("HSET", jobKey, "payload", ARGV[3], "attempts", 0, "score", score)
redis.call("ZADD", KEYS[1], score, ARGV[2])
return "OK"
`)

var claimScript = redis.NewScript(`
local ready = redis.call("ZRANGEBYSCORE", KEYS[2], "-inf", ARGV[2])
for _, id in ipairs(ready) do
  local score = redis.call("HGET", ARGV[1] .. "job:" .. id, "score")
  redis.call("ZREM", KEYS[2], id)
  if score then
    redis.call("ZADD", KEYS[1], score, id)
  end
end
local popped = redis.call("ZPOPMIN", KEYS[1])
if #popped == 0 then
  return false
end
local id = popped[1]
local jobKey = ARGV[1] .. "job:" .. id
local attempts = redis.call("HINCRBY", jobKey, "attempts", 1)
redis.call("ZADD", KEYS[3], tonumber(ARGV[2]) + tonumber(ARGV[3]), id)
return {redis.call("HGET", jobKey, "payload"), attempts}
`)

var finishScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[2]) == 0 then
  return "NOT_FOUND"
end
redis.call("DEL", ARGV[1] .. "job:" .. ARGV[2])
redis.call("INCR", KEYS[2])
return "OK"
`)

var delayScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 0 then
  return "NOT_FOUND"
end
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[1])
return "OK"
`)

var cancelScript = redis.NewScript(`
local jobKey = ARGV[1] .. "job:" .. ARGV[2]
if redis.call("EXISTS", jobKey) == 0 then
  return "NOT_FOUND"
end
if redis.call("ZSCORE", KEYS[1], ARGV[2]) == false then
  return "NOT_CANCELLABLE"
end
if tonumber(redis.call("HGET", jobKey, "attempts")) > 0 then
  return "NOT_CANCELLABLE"
end
redis.call("ZREM", KEYS[1], ARGV[2])
redis.call("DEL", jobKey)
return "OK"
`)

var renewScript = redis.NewScript(`
if redis.call("ZSCORE", KEYS[1], ARGV[1]) == false then
  return "NOT_FOUND"
end
redis.call("ZADD", KEYS[1], "XX", ARGV[2], ARGV[1])
return "OK"
`)

var errLeaseExpired = errors.New("lease expired")

// ExhaustedHandler settles a job the reaper gave up on. The queue already
// counted it as failed.
type ExhaustedHandler func(ctx context.Context, job entities.ScanJob, cause error)

// RedisJobQueue keeps the queue in Redis so several instances share it and
// jobs survive restarts. A claimed job holds a lease, jobs whose lease
// expired are put back by ReapExpired.
type RedisJobQueue struct {
	client    *redis.Client
	cache     out.Cache
	prefix    string
	policy    RetryPolicy
	lease     time.Duration
	exhausted ExhaustedHandler
	logger    logging.Logger
	now       func() time.Time
}

func NewRedisJobQueue(client *redis.Client, cache out.Cache, prefix string, policy RetryPolicy, lease time.Duration, logger logging.Logger) *RedisJobQueue {
	if lease <= 0 {
		lease = defaultLease
	}

	return &RedisJobQueue{client: client, cache: cache, prefix: prefix + ":", policy: policy, lease: lease, logger: logger, now: time.Now}
}

// OnExhausted registers the handler called for jobs whose lease expired
// after their last attempt.
func (r *RedisJobQueue) OnExhausted(handler ExhaustedHandler) *RedisJobQueue {
	r.exhausted = handler
	return r
}

func (r *RedisJobQueue) Lease() time.Duration {
	return r.lease
}

// Renew pushes the lease of a claimed job one full period forward.
func (r *RedisJobQueue) Renew(ctx context.Context, jobID string) error {
	expiresAt := r.now().Add(r.lease).UnixMilli()

	reply, err := renewScript.Run(ctx, r.client, []string{r.key("active")}, jobID, expiresAt).Text()
	if err != nil {
		return fmt.Errorf("failed to renew lease. jobId: %s, err: %w", jobID, err)
	}

	return replyError(reply)
}

func (r *RedisJobQueue) key(name string) string {
	return r.prefix + name
}

func (r *RedisJobQueue) Enqueue(ctx context.Context, job entities.ScanJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshall job. jobId: %s, err: %w", job.ID, err)
	}

	reply, err := enqueueScript.Run(ctx, r.client, []string{r.key("waiting")}, r.prefix, job.ID, string(payload), job.Priority, priorityBand).Text()
	if err != nil {
		return fmt.Errorf("failed to enqueue job. jobId: %s, err: %w", job.ID, err)
	}

	if reply == replyDuplicated {
		return fmt.Errorf("job already queued. jobId: %s", job.ID)
	}

	return nil
}

func (r *RedisJobQueue) Claim(ctx context.Context) (entities.QueuedJob, error) {
	keys := []string{r.key("waiting"), r.key("delayed"), r.key("active")}

	reply, err := claimScript.Run(ctx, r.client, keys, r.prefix, r.now().UnixMilli(), r.lease.Milliseconds()).Slice()
	if errors.Is(err, redis.Nil) {
		return entities.QueuedJob{}, out.ErrQueueEmpty
	}

	if err != nil {
		return entities.QueuedJob{}, fmt.Errorf("failed to claim job. err: %w", err)
	}

	if len(reply) != 2 {
		return entities.QueuedJob{}, fmt.Errorf("unexpected claim reply %v", reply)
	}

	payload, _ := reply[0].(string)
	attempts, _ := reply[1].(int64)

	var job entities.ScanJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return entities.QueuedJob{}, fmt.Errorf("failed to unmarshall claimed job. err: %w", err)
	}

	return entities.QueuedJob{Job: job, Attempt: int(attempts)}, nil
}

func (r *RedisJobQueue) Ack(ctx context.Context, jobID string) error {
	return r.finish(ctx, jobID, "completed")
}

func (r *RedisJobQueue) Fail(ctx context.Context, jobID string, _ error) error {
	return r.finish(ctx, jobID, "failed")
}

func (r *RedisJobQueue) finish(ctx context.Context, jobID, counter string) error {
	reply, err := finishScript.Run(ctx, r.client, []string{r.key("active"), r.key(counter)}, r.prefix, jobID).Text()
	if err != nil {
		return fmt.Errorf("failed to finish job. jobId: %s, err: %w", jobID, err)
	}

	return replyError(reply)
}

func (r *RedisJobQueue) Retry(ctx context.Context, jobID string, _ error) error {
	attempts, err := r.client.HGet(ctx, r.key("job:"+jobID), "attempts").Int()
	if errors.Is(err, redis.Nil) {
		return out.ErrJobNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to read job attempts. jobId: %s, err: %w", jobID, err)
	}

	if r.policy.Exhausted(attempts) {
		return out.ErrRetriesExhausted
	}

	readyAt := r.now().Add(r.policy.Delay(attempts)).UnixMilli()
	reply, err := delayScript.Run(ctx, r.client, []string{r.key("active"), r.key("delayed")}, jobID, readyAt).Text()
	if err != nil {
		return fmt.Errorf("failed to schedule retry. jobId: %s, err: %w", jobID, err)
	}

	return replyError(reply)
}

func (r *RedisJobQueue) Cancel(ctx context.Context, jobID string) error {
	reply, err := cancelScript.Run(ctx, r.client, []string{r.key("waiting")}, r.prefix, jobID).Text()
	if err != nil {
		return fmt.Errorf("failed to cancel job. jobId: %s, err: %w", jobID, err)
	}

	return replyError(reply)
}

func (r *RedisJobQueue) Counts(ctx context.Context) (entities.QueueCounts, error) {
	pipe := r.client.Pipeline()
	waiting := pipe.ZCard(ctx, r.key("waiting"))
	delayed := pipe.ZCard(ctx, r.key("delayed"))
	active := pipe.ZCard(ctx, r.key("active"))
	completed := pipe.Get(ctx, r.key("completed"))
	failed := pipe.Get(ctx, r.key("failed"))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return entities.QueueCounts{}, fmt.Errorf("failed to count jobs. err: %w", err)
	}

	return entities.QueueCounts{
		Waiting:   waiting.Val() + delayed.Val(),
		Active:    active.Val(),
		Completed: counterValue(completed),
		Failed:    counterValue(failed),
	}, nil
}

// ReapExpired requeues jobs whose worker died while holding the lease. Only
// one instance reaps at a time, the others skip the round.
func (r *RedisJobQueue) ReapExpired(ctx context.Context) (int, error) {
	lockKey := r.key("reaper")
	if err := r.cache.Lock(lockKey, reaperLockTimeout); err != nil {
		return 0, nil
	}

	defer func() {
		if err := r.cache.Unlock(lockKey); err != nil {
			r.logger.Warnw("Failed to release reaper lock", "error", err)
		}
	}()

	expired, err := r.client.ZRangeByScore(ctx, r.key("active"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(r.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list expired leases. err: %w", err)
	}

	reaped := 0
	for _, jobID := range expired {
		err := r.Retry(ctx, jobID, errLeaseExpired)
		if errors.Is(err, out.ErrRetriesExhausted) {
			err = r.giveUp(ctx, jobID)
		}

		if err != nil {
			r.logger.Errorw("Failed to reap job", "jobId", jobID, "error", err)
			continue
		}

		r.logger.Warnw("Reaped job with expired lease", "jobId", jobID)
		reaped++
	}

	return reaped, nil
}

// giveUp fails a job out of attempts. The payload is read first, Fail
// drops it.
func (r *RedisJobQueue) giveUp(ctx context.Context, jobID string) error {
	payload, err := r.client.HGet(ctx, r.key("job:"+jobID), "payload").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read job payload. jobId: %s, err: %w", jobID, err)
	}

	if err := r.Fail(ctx, jobID, errLeaseExpired); err != nil {
		return err
	}

	if r.exhausted == nil {
		return nil
	}

	job := entities.ScanJob{ID: jobID}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			r.logger.Warnw("Failed to decode reaped job, reporting its id only", "jobId", jobID, "error", err)
			job = entities.ScanJob{ID: jobID}
		}
	}

	r.exhausted(ctx, job, errLeaseExpired)

	return nil
}

// RunReaper calls ReapExpired every interval until ctx is cancelled.
func (r *RedisJobQueue) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReapExpired(ctx); err != nil {
				r.logger.Errorw("Reaper round failed", "error", err)
			}
		}
	}
}

func replyError(reply string) error {
	switch reply {
	case replyOK:
		return nil
	case replyNotFound:
		return out.ErrJobNotFound
	case replyNotCancellable:
		return out.ErrNotCancellable
	default:
		return fmt.Errorf("unexpected queue reply %q", reply)
	}
}

func counterValue(cmd *redis.StringCmd) int64 {
	value, err := cmd.Int64()
	if err != nil {
		return 0
	}

	return value
}
