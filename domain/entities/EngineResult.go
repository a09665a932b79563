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

type EngineStatus string

const (
	Clean      EngineStatus = "clean"
	Suspicious EngineStatus = "suspicious"
	Infected   EngineStatus = "infected"
	EngineErr  EngineStatus = "error"
)

type Severity string

const (
	Low      Severity = "low"
	Medium   Severity = "medium"
	High     Severity = "high"
	Critical Severity = "critical"
)

type Finding struct {
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Severity Severity          `json:"severity"`
	Details  map[string]string `json:"details,omitempty"`
}

type EngineResult struct {
	Scanner    ScannerID      `json:"scanner"`
	Status     EngineStatus   `json:"status"`
	Findings   []Finding      `json:"findings"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	DurationMs int64          `json:"durationMs"`
}

func NewEngineResult(scanner ScannerID) EngineResult {
	return EngineResult{Scanner: scanner, Status: Clean, Findings: []Finding{}, Metadata: map[string]any{}}
}

// NewEngineError is the result recorded for a scanner that failed, timed out or panicked.
func NewEngineError(scanner ScannerID, err error) EngineResult {
	return EngineResult{Scanner: scanner, Status: EngineErr, Findings: []Finding{}, Metadata: map[string]any{"error": err.Error()}}
}

// AddFinding records the finding and raises the status, it never lowers it.
func (r *EngineResult) AddFinding(status EngineStatus, finding Finding) {
	r.Findings = append(r.Findings, finding)
	if status.Weight() > r.Status.Weight() {
		r.Status = status
	}
}

// Weight orders statuses by precedence, higher wins.
func (s EngineStatus) Weight() int {
	switch s {
	case Infected:
		return 3
	case Suspicious:
		return 2
	case EngineErr:
		return 1
	default:
		return 0
	}
}
