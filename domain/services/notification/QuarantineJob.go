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

package notification

import (
	"context"
	"fmt"
	"path"
	"sync"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/domain/services"
	"tier-scanner/logging"
	"time"

	"github.com/eikenb/pipeat"
)

const quarantineWorkers = 4

type QuarantineConfig struct {
	// StorageType is the remote storage holding the quarantine bucket.
	StorageType string
	Bucket      string
}

// QuarantineJob copies the file of every infected job into the quarantine
// bucket under <day>/<jobId>/<name>. Local files are left alone. Copies run
// in the background, at most quarantineWorkers at a time.
type QuarantineJob struct {
	config               QuarantineConfig
	remoteStorageFactory out.RemoteStorageFactory
	slots                chan struct{}
	pending              sync.WaitGroup
	logger               logging.Logger
	now                  func() time.Time
}

func NewQuarantineJob(config QuarantineConfig, remoteStorageFactory out.RemoteStorageFactory, logger logging.Logger) *QuarantineJob {
	return &QuarantineJob{
		config:               config,
		remoteStorageFactory: remoteStorageFactory,
		slots:                make(chan struct{}, quarantineWorkers),
		logger:               logger,
		now:                  time.Now,
	}
}

func (q *QuarantineJob) Update(_ context.Context, result entities.AggregatedResult) {
	if result.Status != entities.Infected || q.config.Bucket == "" {
		return
	}

	location, err := services.ParseLocation(result.FilePath)
	if err != nil || location.Scheme == services.LocalScheme {
		return
	}

	key := path.Join(q.now().UTC().Format(dayLayout), result.JobID, path.Base(location.Key))

	q.pending.Add(1)
	go func() {
		defer q.pending.Done()

		q.slots <- struct{}{}
		defer func() { <-q.slots }()

		if err := q.copy(location, key); err != nil {
			q.logger.Errorw("Failed to quarantine file", "jobId", result.JobID, "location", result.FilePath, "error", err)
			return
		}

		q.logger.Infow("File quarantined", "jobId", result.JobID, "bucket", q.config.Bucket, "key", key)
	}()
}

// Wait blocks until every started copy finished.
func (q *QuarantineJob) Wait() {
	q.pending.Wait()
}

func (q *QuarantineJob) copy(location services.Location, key string) error {
	source, err := q.remoteStorageFactory.GetRemoteStorage(location.Scheme)
	if err != nil {
		return err
	}

	destination, err := q.remoteStorageFactory.GetRemoteStorage(q.config.StorageType)
	if err != nil {
		return err
	}

	reader, writer, err := pipeat.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create internal pipe. err: %w", err)
	}
	defer reader.Close()

	go func() {
		err := source.Get(location.Bucket, location.Key, writer)
		writer.CloseWithError(err)
	}()

	return destination.Put(q.config.Bucket, key, reader)
}

func (q *QuarantineJob) UpdateGlobal(context.Context) {}
