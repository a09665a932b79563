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
package services

import (
	"context"
	"errors"
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
	"time"
)

var (
	ErrScanIDNotFound = errors.New("scan id not found")
	ErrScanInProgress = errors.New("scan not completed yet")
	ErrScanIsWaiting  = errors.New("scan is waiting in the queue")
)

type StatsSource interface {
	Snapshot() entities.StatsSnapshot
}

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../mocks/mock_query_service.go -package=mocks -source=ScanQueryService.go
type QueryService interface {
	GetResult(ctx context.Context, jobID string) (entities.AggregatedResult, error)
	GetFileHistory(ctx context.Context, fileID string) ([]entities.AggregatedResult, error)
	GetQueueStatus(ctx context.Context) (entities.QueueCounts, error)
	GetStats() entities.StatsSnapshot
}

type ScanQueryService struct {
	store  out.ResultStore
	queue  out.JobQueue
	stats  StatsSource
	logger logging.Logger
}

func NewScanQueryService(store out.ResultStore, queue out.JobQueue, stats StatsSource, logger logging.Logger) *ScanQueryService {
	return &ScanQueryService{store: store, queue: queue, stats: stats, logger: logger}
}

func (s *ScanQueryService) GetResult(ctx context.Context, jobID string) (entities.AggregatedResult, error) {
	record, err := s.store.GetJobStatus(ctx, jobID)
	if errors.Is(err, out.ErrJobNotFound) {
		return entities.AggregatedResult{}, ErrScanIDNotFound
	}

	if err != nil {
		return entities.AggregatedResult{}, fmt.Errorf("failed to get job status. jobId: %s, err: %w", jobID, err)
	}

	switch record.Status {
	case entities.Queued:
		return entities.AggregatedResult{}, ErrScanIsWaiting
	case entities.Scanning:
		return entities.AggregatedResult{}, ErrScanInProgress
	}

	result, err := s.store.Get(ctx, jobID)
	if err == nil {
		return result, nil
	}

	// Cancelled jobs and jobs failed before aggregation only carry a status.
	if errors.Is(err, out.ErrResultNotFound) && record.Status == entities.Failed {
		return entities.AggregatedResult{
			JobID:       jobID,
			Status:      entities.EngineErr,
			ThreatLevel: entities.ThreatUnknown,
			Error:       record.Reason,
			CreatedAt:   time.UnixMilli(record.UpdatedAt),
		}, nil
	}

	if errors.Is(err, out.ErrResultNotFound) {
		s.logger.Warnw("Job finished without a stored result", "jobId", jobID, "status", record.Status)
		return entities.AggregatedResult{}, ErrScanIDNotFound
	}

	return entities.AggregatedResult{}, fmt.Errorf("failed to get result. jobId: %s, err: %w", jobID, err)
}

func (s *ScanQueryService) GetFileHistory(ctx context.Context, fileID string) ([]entities.AggregatedResult, error) {
	results, err := s.store.ListByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results. fileId: %s, err: %w", fileID, err)
	}

	if results == nil {
		results = []entities.AggregatedResult{}
	}

	return results, nil
}

func (s *ScanQueryService) GetQueueStatus(ctx context.Context) (entities.QueueCounts, error) {
	return s.queue.Counts(ctx)
}

func (s *ScanQueryService) GetStats() entities.StatsSnapshot {
	return s.stats.Snapshot()
}
