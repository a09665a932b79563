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
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
)

const (
	infectedRatio   = 0.3
	suspiciousRatio = 0.1
)

type ReputationScanner struct {
	service out.ReputationService
	logger  logging.Logger
}

func NewReputationScanner(service out.ReputationService, logger logging.Logger) *ReputationScanner {
	return &ReputationScanner{service: service, logger: logger}
}

func (r *ReputationScanner) ID() entities.ScannerID {
	return entities.ReputationScanner
}

func (r *ReputationScanner) Scan(ctx context.Context, target Target) (entities.EngineResult, error) {
	result := entities.NewEngineResult(r.ID())

	report, err := r.service.Lookup(ctx, target.Job.FileHash)
	if err != nil {
		return result, fmt.Errorf("reputation lookup failed. err: %w", err)
	}

	result.Metadata["found"] = report.Found
	result.Metadata["positives"] = report.Positives
	result.Metadata["total"] = report.Total

	if !report.Found || report.Total <= 0 || report.Positives <= 0 {
		return result, nil
	}

	ratio := float64(report.Positives) / float64(report.Total)
	result.Metadata["ratio"] = ratio
	details := map[string]string{"positives": fmt.Sprint(report.Positives), "total": fmt.Sprint(report.Total)}
	message := fmt.Sprintf("%d of %d engines flagged the file hash", report.Positives, report.Total)

	switch {
	case ratio >= infectedRatio:
		result.AddFinding(entities.Infected, entities.Finding{Type: "reputation_malicious", Message: message, Severity: entities.Critical, Details: details})
	case ratio >= suspiciousRatio:
		result.AddFinding(entities.Suspicious, entities.Finding{Type: "reputation_flagged", Message: message, Severity: entities.High, Details: details})
	default:
		result.AddFinding(entities.Suspicious, entities.Finding{Type: "reputation_flagged", Message: message, Severity: entities.Medium, Details: details})
	}

	return result, nil
}
