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
	"tier-scanner/domain/entities"
	"time"
)

var ErrResultNotFound = errors.New("result not found")

// ResultStore persists aggregated results and job status transitions. Writes
// are idempotent on the job id and status writes never regress.
//
//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_result_store.go -package=mocks -source=ResultStore.go
type ResultStore interface {
	Put(ctx context.Context, result entities.AggregatedResult) error
	Get(ctx context.Context, jobID string) (entities.AggregatedResult, error)
	ListByFile(ctx context.Context, fileID string) ([]entities.AggregatedResult, error)
	PutJobStatus(ctx context.Context, jobID string, status entities.JobStatus, reason string, at time.Time) error
	GetJobStatus(ctx context.Context, jobID string) (entities.JobStatusRecord, error)
}
