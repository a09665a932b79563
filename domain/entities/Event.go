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

type EventType string

const (
	ScanProgress EventType = "scan_progress"
	ScanResult   EventType = "scan_result"
	StatsUpdate  EventType = "stats"
)

type Event struct {
	Type      EventType         `json:"type"`
	JobID     string            `json:"jobId,omitempty"`
	FileID    string            `json:"fileId,omitempty"`
	Scanner   ScannerID         `json:"scanner,omitempty"`
	Percent   int               `json:"percent,omitempty"`
	Result    *AggregatedResult `json:"result,omitempty"`
	Stats     *StatsSnapshot    `json:"stats,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewProgressEvent(job ScanJob, scanner ScannerID, percent int) Event {
	return Event{Type: ScanProgress, JobID: job.ID, FileID: job.FileID, Scanner: scanner, Percent: percent, Timestamp: time.Now()}
}

func NewResultEvent(result AggregatedResult) Event {
	return Event{Type: ScanResult, JobID: result.JobID, FileID: result.FileID, Result: &result, Timestamp: time.Now()}
}

func NewStatsEvent(snapshot StatsSnapshot) Event {
	return Event{Type: StatsUpdate, Stats: &snapshot, Timestamp: time.Now()}
}

type StatsSnapshot struct {
	Total             int64     `json:"total"`
	Clean             int64     `json:"clean"`
	Suspicious        int64     `json:"suspicious"`
	Infected          int64     `json:"infected"`
	Errors            int64     `json:"errors"`
	AverageScanTimeMs float64   `json:"averageScanTimeMs"`
	LastUpdate        time.Time `json:"lastUpdate"`
}
