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

package scan

import (
	"context"
	"errors"
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
	"time"

	"github.com/spf13/afero"
)

const (
	scanBufferSize = 1024 * 1024
	defaultTimeout = 60 * time.Second
)

var (
	ErrScannerNotRegistered = errors.New("scanner not registered")
	ErrFileNotStaged        = errors.New("file not staged")
)

// Scanner is implemented by every detection engine. Errors returned by Scan
// are recorded on the engine result, they never abort the job.
type Scanner interface {
	ID() entities.ScannerID
	Scan(ctx context.Context, target Target) (entities.EngineResult, error)
}

// Target is the file of a job as seen by the scanners.
type Target struct {
	Job      entities.ScanJob
	Storage  out.LocalStorage
	Filename string
	// StageErr is set when the file could not be fetched. Scanners that need
	// the content fail with it, the others still run.
	StageErr error
}

func (t Target) Open() (afero.File, error) {
	if t.StageErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileNotStaged, t.StageErr)
	}

	if t.Storage == nil {
		return nil, ErrFileNotStaged
	}

	return t.Storage.Open(t.Filename)
}

// Registry resolves scanner ids to implementations and runs them under their timeout.
type Registry struct {
	scanners map[entities.ScannerID]Scanner
	timeouts map[entities.ScannerID]time.Duration
	logger   logging.Logger
}

func NewRegistry(timeouts map[entities.ScannerID]time.Duration, logger logging.Logger, scanners ...Scanner) *Registry {
	registry := &Registry{scanners: make(map[entities.ScannerID]Scanner), timeouts: timeouts, logger: logger}
	for _, scanner := range scanners {
		registry.scanners[scanner.ID()] = scanner
	}

	return registry
}

func (r *Registry) Registered() []entities.ScannerID {
	ids := make([]entities.ScannerID, 0, len(r.scanners))
	for _, id := range entities.KnownScanners() {
		if _, ok := r.scanners[id]; ok {
			ids = append(ids, id)
		}
	}

	return ids
}

func (r *Registry) timeout(id entities.ScannerID) time.Duration {
	if timeout, ok := r.timeouts[id]; ok && timeout > 0 {
		return timeout
	}

	return defaultTimeout
}

// Run executes one scanner. Failures, panics and timeouts come back as an
// engine result with status error.
func (r *Registry) Run(ctx context.Context, id entities.ScannerID, target Target) entities.EngineResult {
	start := time.Now()

	scanner, ok := r.scanners[id]
	if !ok {
		result := entities.NewEngineError(id, fmt.Errorf("%w: %s", ErrScannerNotRegistered, id))
		r.logger.Errorw("Scanner not available", "jobId", target.Job.ID, "scanner", id)

		return result
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout(id))
	defer cancel()

	done := make(chan entities.EngineResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- entities.NewEngineError(id, fmt.Errorf("scanner panic: %v", rec))
			}
		}()

		result, err := scanner.Scan(ctx, target)
		if err != nil {
			done <- entities.NewEngineError(id, err)
			return
		}

		result.Scanner = id
		if result.Findings == nil {
			result.Findings = []entities.Finding{}
		}
		done <- result
	}()

	var result entities.EngineResult
	select {
	case result = <-done:
	case <-ctx.Done():
		result = entities.NewEngineError(id, fmt.Errorf("scanner %s aborted: %w", id, ctx.Err()))
	}

	result.DurationMs = time.Since(start).Milliseconds()
	if result.Status == entities.EngineErr {
		r.logger.Warnw("Scanner failed", "jobId", target.Job.ID, "scanner", id, "error", result.Metadata["error"])
	}

	return result
}
