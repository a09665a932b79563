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

package notification

import (
	"context"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
)

// AuditJob hands every final verdict to the audit sinks. A failing sink is
// logged and does not affect the others.
type AuditJob struct {
	sinks  []out.AuditSink
	logger logging.Logger
}

func NewAuditJob(sinks []out.AuditSink, logger logging.Logger) *AuditJob {
	return &AuditJob{sinks: sinks, logger: logger}
}

func (a *AuditJob) Update(ctx context.Context, result entities.AggregatedResult) {
	for _, sink := range a.sinks {
		if err := sink.Record(ctx, result); err != nil {
			a.logger.Errorw("Failed to record audit entry", "sink", sink.Name(), "jobId", result.JobID, "error", err)
		}
	}
}

func (a *AuditJob) UpdateGlobal(context.Context) {}
