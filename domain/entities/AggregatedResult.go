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

type ThreatLevel string

const (
	ThreatHigh    ThreatLevel = "high"
	ThreatMedium  ThreatLevel = "medium"
	ThreatUnknown ThreatLevel = "unknown"
	ThreatClean   ThreatLevel = "clean"
)

type AggregatedResult struct {
	JobID           string                     `json:"jobId"`
	FileID          string                     `json:"fileId"`
	FilePath        string                     `json:"filePath"`
	FileHash        string                     `json:"fileHash"`
	Tier            string                     `json:"tier"`
	Status          EngineStatus               `json:"status"`
	ThreatLevel     ThreatLevel                `json:"threatLevel"`
	Confidence      int                        `json:"confidence"`
	Findings        []Finding                  `json:"findings"`
	Recommendations []string                   `json:"recommendations"`
	ScanTimeMs      int64                      `json:"scanTimeMs"`
	Scanners        []ScannerID                `json:"scanners"`
	PerEngine       map[ScannerID]EngineResult `json:"perEngine"`
	Error           string                     `json:"error,omitempty"`
	CreatedAt       time.Time                  `json:"createdAt"`
}
