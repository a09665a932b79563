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

package common

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// LocalRateLimiter enforces the same windows as RedisRateLimiter inside a
// single process, used when no Redis is configured.
type LocalRateLimiter struct {
	limiters []*rate.Limiter
}

func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	var limiters []*rate.Limiter

	if config.Minute > 0 {
		limiters = append(limiters, rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.Minute)), config.Minute))
	}

	if config.Hour > 0 {
		limiters = append(limiters, rate.NewLimiter(rate.Every(time.Hour/time.Duration(config.Hour)), config.Hour))
	}

	return &LocalRateLimiter{limiters: limiters}
}

func (l *LocalRateLimiter) Allow(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	now := time.Now()
	reservations := make([]*rate.Reservation, 0, len(l.limiters))

	for _, limiter := range l.limiters {
		reservation := limiter.ReserveN(now, 1)
		if !reservation.OK() || reservation.DelayFrom(now) > 0 {
			reservation.CancelAt(now)
			for _, taken := range reservations {
				taken.CancelAt(now)
			}

			return false
		}

		reservations = append(reservations, reservation)
	}

	return true
}
