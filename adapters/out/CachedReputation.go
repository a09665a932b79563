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
	"fmt"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"
)

const (
	reputationTTL       = 24 * time.Hour
	reputationKeyFormat = "reputation/%s"
)

// CachedReputation keeps lookups in the cache so repeated submissions of the
// same file do not spend the rate budget of the reputation service.
type CachedReputation struct {
	service out.ReputationService
	cache   out.Cache
	logger  logging.Logger
}

func NewCachedReputation(service out.ReputationService, cache out.Cache, logger logging.Logger) *CachedReputation {
	return &CachedReputation{service: service, cache: cache, logger: logger}
}

func (c *CachedReputation) Lookup(ctx context.Context, hash string) (out.ReputationReport, error) {
	key := fmt.Sprintf(reputationKeyFormat, hash)

	cached, err := c.cache.Get(key)
	switch {
	case err == nil:
		var report out.ReputationReport
		if err := json.Unmarshal([]byte(cached), &report); err == nil {
			return report, nil
		}
		c.logger.Warnw("Discarding unreadable cached reputation", "hash", hash)
	case !errors.Is(err, redis.Nil):
		c.logger.Warnw("Reputation cache unavailable", "error", err, "hash", hash)
	}

	report, err := c.service.Lookup(ctx, hash)
	if err != nil {
		return out.ReputationReport{}, errors.Wrap(err, "reputation lookup")
	}

	encoded, err := json.Marshal(report)
	if err != nil {
		return report, nil
	}

	if err := c.cache.Set(key, string(encoded), reputationTTL); err != nil {
		c.logger.Warnw("Failed to cache reputation", "error", err, "hash", hash)
	}

	return report, nil
}
