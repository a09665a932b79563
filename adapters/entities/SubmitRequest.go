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

import "tier-scanner/domain/entities"

type SubmitRequest struct {
	FileID        string            `json:"fileId" validate:"required"`
	FilePath      string            `json:"filePath" validate:"required"`
	FileName      string            `json:"fileName" validate:"required"`
	FileSizeBytes int64             `json:"fileSizeBytes" validate:"gte=0"`
	FileHash      string            `json:"fileHash" validate:"required,hexadecimal"`
	Tier          string            `json:"tier" validate:"required"`
	CallerID      string            `json:"callerId"`
	Priority      *int              `json:"priority,omitempty" validate:"omitempty,gte=0,lte=1000"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ToSubmission falls back to callerID when the request names no caller.
func (r SubmitRequest) ToSubmission(callerID string) entities.Submission {
	if r.CallerID != "" {
		callerID = r.CallerID
	}

	return entities.Submission{
		FileID:           r.FileID,
		FilePath:         r.FilePath,
		FileName:         r.FileName,
		FileSizeBytes:    r.FileSizeBytes,
		FileHash:         r.FileHash,
		Tier:             r.Tier,
		CallerID:         callerID,
		PriorityOverride: r.Priority,
		Metadata:         r.Metadata,
	}
}

type SubmitResponse struct {
	JobID           string             `json:"jobId,omitempty"`
	Status          entities.JobStatus `json:"status,omitempty"`
	EstimatedTimeMs int64              `json:"estimatedTimeMs,omitempty"`
	Error           string             `json:"error,omitempty"`
}

func MapAdmissionToResponse(admission entities.Admission) SubmitResponse {
	return SubmitResponse{JobID: admission.JobID, Status: admission.Status, EstimatedTimeMs: admission.EstimatedTimeMs}
}

type CancelResponse struct {
	JobID  string `json:"jobId,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}
