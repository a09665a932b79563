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
	"fmt"
	"sync"
	"tier-scanner/pkg/awsutils"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v9"
)

// AWSCache is the Cache backed by Elasticache or any Redis server. Locks are
// held per key by this process.
type AWSCache struct {
	mu          sync.Mutex
	locks       map[string]*redislock.Lock
	elasticache *awsutils.Elasticache
}

func NewCache(url, password string, useTLS bool) *AWSCache {
	elasticache := &awsutils.Elasticache{}
	elasticache.InitRedis(url, password, useTLS)

	return &AWSCache{
		elasticache: elasticache,
		locks:       make(map[string]*redislock.Lock),
	}
}

func (a *AWSCache) Client() *redis.Client {
	return a.elasticache.Client()
}

func (a *AWSCache) Ping(ctx context.Context) error {
	return a.elasticache.Ping(ctx)
}

func (a *AWSCache) Get(key string) (string, error) {
	return a.elasticache.GetKey(key)
}

func (a *AWSCache) Set(key string, value any, expiration time.Duration) error {
	return a.elasticache.SetKey(key, value, expiration)
}

// Lock fails without waiting when another holder owns the key.
func (a *AWSCache) Lock(key string, duration time.Duration) error {
	lock, err := a.elasticache.TryLock(key, duration)
	if err != nil {
		return fmt.Errorf("failed to obtain lock. key: %s, err: %w", key, err)
	}

	a.mu.Lock()
	a.locks[key] = lock
	a.mu.Unlock()

	return nil
}

func (a *AWSCache) Unlock(key string) error {
	a.mu.Lock()
	lock, ok := a.locks[key]
	delete(a.locks, key)
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("lock not found. key %s", key)
	}

	return a.elasticache.Unlock(lock)
}

func (a *AWSCache) Close() error {
	return a.elasticache.Close()
}
