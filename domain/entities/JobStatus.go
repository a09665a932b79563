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

type JobStatus string

const (
	Queued    JobStatus = "queued"
	Scanning  JobStatus = "scanning"
	Completed JobStatus = "completed"
	Failed    JobStatus = "error"
)

func (s JobStatus) rank() int {
	switch s {
	case Queued:
		return 0
	case Scanning:
		return 1
	case Completed, Failed:
		return 2
	default:
		return -1
	}
}

func (s JobStatus) Rank() int {
	return s.rank()
}

func (s JobStatus) IsTerminal() bool {
	return s == Completed || s == Failed
}

// CanAdvanceTo reports whether the status may move to next. A retried job
// goes through scanning more than once, terminal statuses never change.
func (s JobStatus) CanAdvanceTo(next JobStatus) bool {
	if next.rank() < 0 || s.IsTerminal() {
		return false
	}

	return next.rank() >= s.rank()
}

type JobStatusRecord struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt int64     `json:"updatedAt"`
}
