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
	"io"
	"tier-scanner/domain/entities"
)

type AntivirusReport struct {
	Infected bool
	Threats  []string
}

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_engines.go -package=mocks -source=Engines.go
type AntivirusEngine interface {
	Scan(ctx context.Context, path string, content io.Reader) (AntivirusReport, error)
}

type ReputationReport struct {
	Found     bool
	Positives int
	Total     int
}

type ReputationService interface {
	Lookup(ctx context.Context, hash string) (ReputationReport, error)
}

// AuditSink records final verdicts.
type AuditSink interface {
	Record(ctx context.Context, result entities.AggregatedResult) error
	Name() string
}

type RateLimiter interface {
	Allow(ctx context.Context) bool
}
