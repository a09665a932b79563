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
	"tier-scanner/logging"
)

// Handler consumes the orchestrator events and broadcasts them. A result is
// followed by the refreshed stats snapshot.
type Handler struct {
	broadcaster *Broadcaster
	stats       StatsSource
	logger      logging.Logger
}

func NewNotificationHandler(broadcaster *Broadcaster, stats StatsSource, logger logging.Logger) *Handler {
	return &Handler{broadcaster: broadcaster, stats: stats, logger: logger}
}

func (n *Handler) Handle(_ context.Context, event *entities.Event, _ *entities.OutputWriter[entities.Empty]) error {
	delivered := n.broadcaster.Publish(event)
	n.logger.Debugw("Event broadcast", "type", event.Type, "jobId", event.JobID, "subscribers", delivered)

	if event.Type == entities.ScanResult {
		stats := entities.NewStatsEvent(n.stats.Snapshot())
		n.broadcaster.Publish(&stats)
	}

	return nil
}

func (n *Handler) Name() string {
	return "Notification Handler"
}
