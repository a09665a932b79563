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

package aggregate

import (
	"tier-scanner/domain/entities"
	"time"
)

const (
	RecommendQuarantine = "quarantine immediately"
	RecommendReview     = "hold the file and request a manual review"
	RecommendResubmit   = "scan could not be completed, re-submit the file"
)

var confidence = map[entities.EngineStatus]int{
	entities.Infected:   95,
	entities.Suspicious: 80,
	entities.EngineErr:  0,
	entities.Clean:      100,
}

var threatLevel = map[entities.EngineStatus]entities.ThreatLevel{
	entities.Infected:   entities.ThreatHigh,
	entities.Suspicious: entities.ThreatMedium,
	entities.EngineErr:  entities.ThreatUnknown,
	entities.Clean:      entities.ThreatClean,
}

var byFindingType = map[string]string{
	"hash_mismatch":        "verify integrity and re-submit",
	"size_mismatch":        "verify integrity and re-submit",
	"file_type_mismatch":   "confirm the file extension matches its content",
	"signature_match":      "delete the file and notify the owner",
	"rule_match":           "inspect the matched content patterns",
	"reputation_malicious": "block the file hash",
	"reputation_flagged":   "treat the file as untrusted until reviewed",
	"high_entropy":         "check for packed or encrypted payloads",
	"embedded_executable":  "extract and scan the embedded executable",
}

// Aggregate folds the per engine results of a job into its verdict. order is
// the execution order of the scanners and drives the order of findings.
func Aggregate(job entities.ScanJob, order []entities.ScannerID, perEngine map[entities.ScannerID]entities.EngineResult, scanTime time.Duration) entities.AggregatedResult {
	status := Verdict(perEngine)

	findings := make([]entities.Finding, 0)
	scanners := make([]entities.ScannerID, 0, len(order))
	engines := make(map[entities.ScannerID]entities.EngineResult, len(perEngine))
	for _, id := range order {
		result, ok := perEngine[id]
		if !ok {
			continue
		}

		scanners = append(scanners, id)
		engines[id] = result
		findings = append(findings, result.Findings...)
	}

	return entities.AggregatedResult{
		JobID:           job.ID,
		FileID:          job.FileID,
		FilePath:        job.FilePath,
		FileHash:        job.FileHash,
		Tier:            job.Tier,
		Status:          status,
		ThreatLevel:     threatLevel[status],
		Confidence:      confidence[status],
		Findings:        findings,
		Recommendations: Recommendations(status, findings),
		ScanTimeMs:      scanTime.Milliseconds(),
		Scanners:        scanners,
		PerEngine:       engines,
	}
}

// Verdict is infected over suspicious over clean. The job is only in error
// when no engine produced a usable answer.
func Verdict(perEngine map[entities.ScannerID]entities.EngineResult) entities.EngineStatus {
	if len(perEngine) == 0 {
		return entities.EngineErr
	}

	verdict := entities.Clean
	errored := 0
	for _, result := range perEngine {
		switch result.Status {
		case entities.Infected:
			return entities.Infected
		case entities.Suspicious:
			verdict = entities.Suspicious
		case entities.EngineErr:
			errored++
		}
	}

	if verdict == entities.Clean && errored == len(perEngine) {
		return entities.EngineErr
	}

	return verdict
}

func Recommendations(status entities.EngineStatus, findings []entities.Finding) []string {
	recommendations := make([]string, 0)
	seen := make(map[string]bool)
	add := func(r string) {
		if r == "" || seen[r] {
			return
		}
		seen[r] = true
		recommendations = append(recommendations, r)
	}

	switch status {
	case entities.Infected:
		add(RecommendQuarantine)
	case entities.Suspicious:
		add(RecommendReview)
	case entities.EngineErr:
		add(RecommendResubmit)
	}

	for _, finding := range findings {
		add(byFindingType[finding.Type])
	}

	return recommendations
}

// Failed is the result recorded for a job that could not be processed at all.
func Failed(job entities.ScanJob, cause error, scanTime time.Duration) entities.AggregatedResult {
	result := Aggregate(job, job.Scanners, nil, scanTime)
	result.Error = cause.Error()

	return result
}
