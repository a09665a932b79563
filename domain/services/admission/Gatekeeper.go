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

package admission

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
	"time"

	"github.com/google/uuid"
)

const (
	dayLayout     = "2006-01-02"
	ReferenceSize = 10 * 1024 * 1024
	CancelReason  = "cancelled"
)

var expectedDuration = map[entities.ScannerID]time.Duration{
	entities.BasicValidation:   1 * time.Second,
	entities.SignatureScanner:  5 * time.Second,
	entities.RuleScanner:       3 * time.Second,
	entities.ReputationScanner: 2 * time.Second,
	entities.HeuristicScanner:  2 * time.Second,
}

// QuotaTracker counts admitted jobs per caller and day. TryAdmit checks and
// increments in a single step.
type QuotaTracker interface {
	TryAdmit(callerID, day string, limit int) error
	ReleaseAdmission(callerID, day string)
}

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_submitter.go -package=mocks -source=Gatekeeper.go
type Submitter interface {
	Submit(ctx context.Context, submission entities.Submission) (entities.Admission, error)
	Cancel(ctx context.Context, jobID string) error
}

type Gatekeeper struct {
	tiers  *TierTable
	quota  QuotaTracker
	queue  out.JobQueue
	store  out.ResultStore
	logger logging.Logger
	now    func() time.Time
}

func NewGatekeeper(tiers *TierTable, quota QuotaTracker, queue out.JobQueue, store out.ResultStore, logger logging.Logger) *Gatekeeper {
	return &Gatekeeper{tiers: tiers, quota: quota, queue: queue, store: store, logger: logger, now: time.Now}
}

func (g *Gatekeeper) WithClock(now func() time.Time) *Gatekeeper {
	g.now = now
	return g
}

func (g *Gatekeeper) Submit(ctx context.Context, submission entities.Submission) (entities.Admission, error) {
	if err := validate(submission); err != nil {
		return entities.Admission{}, err
	}

	policy, ok := g.tiers.Lookup(submission.Tier)
	if !ok {
		return entities.Admission{}, &UnknownTierError{Tier: submission.Tier}
	}

	if submission.FileSizeBytes > policy.MaxFileSizeBytes {
		return entities.Admission{}, &FileTooLargeError{Tier: policy.Name, Size: submission.FileSizeBytes, MaxBytes: policy.MaxFileSizeBytes}
	}

	now := g.now()
	day := now.UTC().Format(dayLayout)
	if err := g.quota.TryAdmit(submission.CallerID, day, policy.MaxJobsPerDay); err != nil {
		return entities.Admission{}, err
	}

	job, err := newJob(submission, policy, now)
	if err != nil {
		g.quota.ReleaseAdmission(submission.CallerID, day)
		return entities.Admission{}, err
	}

	if err := g.queue.Enqueue(ctx, job); err != nil {
		g.quota.ReleaseAdmission(submission.CallerID, day)
		return entities.Admission{}, fmt.Errorf("failed to enqueue job. err: %w", err)
	}

	// Status writes never regress, so a worker that already claimed the job wins.
	if err := g.store.PutJobStatus(ctx, job.ID, entities.Queued, "", now); err != nil {
		g.logger.Warnw("Failed to persist queued status", "jobId", job.ID, "err", err)
	}

	g.logger.Infow("Job admitted", "jobId", job.ID, "tier", job.Tier, "callerId", job.CallerID, "priority", job.Priority)

	return entities.Admission{JobID: job.ID, Status: entities.Queued, EstimatedTimeMs: EstimatedTime(job.Scanners, job.FileSizeBytes).Milliseconds()}, nil
}

// Cancel drops a job that is still waiting. The admission keeps counting
// against the caller quota.
func (g *Gatekeeper) Cancel(ctx context.Context, jobID string) error {
	if err := g.queue.Cancel(ctx, jobID); err != nil {
		return err
	}

	if err := g.store.PutJobStatus(ctx, jobID, entities.Failed, CancelReason, g.now()); err != nil {
		return fmt.Errorf("job cancelled but status not persisted. jobId: %s, err: %w", jobID, err)
	}

	g.logger.Infow("Job cancelled", "jobId", jobID)

	return nil
}

// EstimatedTime sums the expected duration of each scanner and scales it by
// the file size in units of ReferenceSize, never below one unit.
func EstimatedTime(scanners []entities.ScannerID, fileSizeBytes int64) time.Duration {
	var total time.Duration
	for _, scanner := range scanners {
		total += expectedDuration[scanner]
	}

	factor := float64(fileSizeBytes) / float64(ReferenceSize)
	if factor < 1 {
		factor = 1
	}

	return time.Duration(float64(total) * factor)
}

func newJob(submission entities.Submission, policy entities.TierPolicy, now time.Time) (entities.ScanJob, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return entities.ScanJob{}, fmt.Errorf("could not generate uuid. err: %w", err)
	}

	priority := policy.BasePriority
	if submission.PriorityOverride != nil {
		priority = *submission.PriorityOverride
	}

	metadata := make(map[string]string, len(submission.Metadata))
	for k, v := range submission.Metadata {
		metadata[k] = v
	}

	return entities.ScanJob{
		ID:            id.String(),
		FileID:        submission.FileID,
		FilePath:      submission.FilePath,
		FileName:      submission.FileName,
		FileSizeBytes: submission.FileSizeBytes,
		FileHash:      submission.FileHash,
		Tier:          policy.Name,
		CallerID:      submission.CallerID,
		Priority:      priority,
		Scanners:      policy.Scanners(),
		RulePreset:    policy.RulePreset,
		Metadata:      metadata,
		SubmittedAt:   now,
	}, nil
}

func validate(submission entities.Submission) error {
	switch {
	case submission.FileID == "":
		return &InvalidSubmissionError{Reason: "fileId is required"}
	case submission.FilePath == "":
		return &InvalidSubmissionError{Reason: "filePath is required"}
	case submission.FileSizeBytes < 0:
		return &InvalidSubmissionError{Reason: "fileSizeBytes must not be negative"}
	case !isDigest(submission.FileHash):
		return &InvalidSubmissionError{Reason: "fileHash must be an md5, sha1 or sha256 hex digest"}
	case submission.CallerID == "":
		return &InvalidSubmissionError{Reason: "callerId is required"}
	case submission.PriorityOverride != nil && (*submission.PriorityOverride < 0 || *submission.PriorityOverride > 1000):
		return &InvalidSubmissionError{Reason: "priority must be between 0 and 1000"}
	}

	return nil
}

func isDigest(fileHash string) bool {
	switch len(fileHash) {
	case 32, 40, 64:
		_, err := hex.DecodeString(fileHash)
		return err == nil
	default:
		return false
	}
}

func IsRejection(err error) bool {
	return errors.Is(err, ErrAdmissionRejected)
}
