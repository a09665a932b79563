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
	"crypto/tls"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
)

type RateLimitConfig struct {
	Hour   int
	Minute int
	Key    string
}

// RedisRateLimiter shares the request budget between every instance
// talking to the same Redis.
type RedisRateLimiter struct {
	config  RateLimitConfig
	limiter *redis_rate.Limiter
}

func NewRateLimiter(url, password string, useTLS bool, config RateLimitConfig) *RedisRateLimiter {
	options := redis.Options{
		Addr:     url,
		Password: password,
		DB:       0, // use default DB
	}

	if useTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &RedisRateLimiter{config: config, limiter: redis_rate.NewLimiter(redis.NewClient(&options))}
}

// Allow consumes one request from every configured window. Redis failures
// deny the request.
func (r *RedisRateLimiter) Allow(ctx context.Context) bool {
	if r.config.Minute != 0 {
		res, err := r.limiter.Allow(ctx, fmt.Sprintf("Minute-%s", r.config.Key), redis_rate.PerMinute(r.config.Minute))
		if err != nil || res.Allowed == 0 {
			return false
		}
	}

	if r.config.Hour != 0 {
		res, err := r.limiter.Allow(ctx, fmt.Sprintf("Hour-%s", r.config.Key), redis_rate.PerHour(r.config.Hour))
		if err != nil || res.Allowed == 0 {
			return false
		}
	}

	return true
}
