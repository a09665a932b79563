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

package entities

import "time"

type Submission struct {
	FileID           string            `json:"fileId" validate:"required"`
	FilePath         string            `json:"filePath" validate:"required"`
	FileName         string            `json:"fileName" validate:"required"`
	FileSizeBytes    int64             `json:"fileSizeBytes" validate:"gte=0"`
	FileHash         string            `json:"fileHash" validate:"required,hexadecimal"`
	Tier             string            `json:"tier" validate:"required"`
	CallerID         string            `json:"callerId"`
	PriorityOverride *int              `json:"priority,omitempty" validate:"omitempty,gte=0,lte=1000"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type Admission struct {
	JobID           string    `json:"jobId"`
	Status          JobStatus `json:"status"`
	EstimatedTimeMs int64     `json:"estimatedTimeMs"`
}

type ScanJob struct {
	ID            string
	FileID        string
	FilePath      string
	FileName      string
	FileSizeBytes int64
	FileHash      string
	Tier          string
	CallerID      string
	Priority      int
	Scanners      []ScannerID
	RulePreset    RulePreset
	Metadata      map[string]string
	SubmittedAt   time.Time
}

// QueuedJob is a job as handed out by a queue claim.
type QueuedJob struct {
	Job     ScanJob
	Attempt int
}

type QueueCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}
