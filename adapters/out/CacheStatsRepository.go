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
	"encoding/json"
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"
)

const (
	statsKeyFormat = "stats/%s"
	lockInterval   = 10 * time.Second
	lockKeyFormat  = "lock-%s"

	statsTTL = 32 * 24 * time.Hour
)

// CacheStatsRepository keeps the daily stats snapshots in the cache. Several
// instances write the same day, the lock serializes them.
type CacheStatsRepository struct {
	cache  out.Cache
	logger logging.Logger
}

func NewCacheStatsRepository(cache out.Cache, logger logging.Logger) *CacheStatsRepository {
	return &CacheStatsRepository{cache: cache, logger: logger}
}

func (c *CacheStatsRepository) getItemKey(day string) string {
	return fmt.Sprintf(statsKeyFormat, day)
}

func (c *CacheStatsRepository) Save(day string, snapshot entities.StatsSnapshot) error {
	if err := c.lock(day); err != nil {
		return err
	}
	defer c.unlock(day)

	jsonResult, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return c.cache.Set(c.getItemKey(day), string(jsonResult), statsTTL)
}

// GetByDay returns an empty snapshot for days without data.
func (c *CacheStatsRepository) GetByDay(day string) (entities.StatsSnapshot, error) {
	jsonResult, err := c.cache.Get(c.getItemKey(day))
	if errors.Is(err, redis.Nil) {
		return entities.StatsSnapshot{}, nil
	}

	if err != nil {
		return entities.StatsSnapshot{}, errors.Wrapf(err, "failed to read stats for %s", day)
	}

	var snapshot entities.StatsSnapshot
	if err := json.Unmarshal([]byte(jsonResult), &snapshot); err != nil {
		return entities.StatsSnapshot{}, errors.Wrapf(err, "invalid stats for %s", day)
	}

	return snapshot, nil
}

func (c *CacheStatsRepository) lock(day string) error {
	if err := c.cache.Lock(fmt.Sprintf(lockKeyFormat, c.getItemKey(day)), lockInterval); err != nil {
		return errors.Wrap(err, "stats lock busy")
	}

	return nil
}

func (c *CacheStatsRepository) unlock(day string) {
	if err := c.cache.Unlock(fmt.Sprintf(lockKeyFormat, c.getItemKey(day))); err != nil {
		c.logger.Errorw("failed to unlock stats key", "error", err, "day", day)
	}
}
