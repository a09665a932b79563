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

package out

import (
	"context"
	"tier-scanner/domain/entities"
	"tier-scanner/logging"
)

// LogAuditSink writes one structured audit line per final verdict.
type LogAuditSink struct {
	logger logging.Logger
}

func NewLogAuditSink(logger logging.Logger) *LogAuditSink {
	return &LogAuditSink{logger: logger}
}

func (l *LogAuditSink) Record(_ context.Context, result entities.AggregatedResult) error {
	findingTypes := make([]string, 0, len(result.Findings))
	for _, finding := range result.Findings {
		findingTypes = append(findingTypes, finding.Type)
	}

	l.logger.Infow("Scan verdict",
		"audit", true,
		"jobId", result.JobID,
		"fileId", result.FileID,
		"fileHash", result.FileHash,
		"tier", result.Tier,
		"status", result.Status,
		"threatLevel", result.ThreatLevel,
		"confidence", result.Confidence,
		"findings", findingTypes,
		"scanTimeMs", result.ScanTimeMs,
		"error", result.Error,
	)

	return nil
}

func (l *LogAuditSink) Name() string {
	return "log"
}
