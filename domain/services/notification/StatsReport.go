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
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
	"time"
)

const dayLayout = "2006-01-02"

// StatsReport persists the daily stats snapshot and shows it to the viewers
// on every round.
type StatsReport struct {
	stats      StatsSource
	repository out.StatsRepository
	viewers    []out.Viewer
	logger     logging.Logger
	now        func() time.Time
}

func NewStatsReport(stats StatsSource, repository out.StatsRepository, viewers []out.Viewer, logger logging.Logger) *StatsReport {
	return &StatsReport{stats: stats, repository: repository, viewers: viewers, logger: logger, now: time.Now}
}

func (s *StatsReport) Update(context.Context, entities.AggregatedResult) {}

func (s *StatsReport) UpdateGlobal(context.Context) {
	snapshot := s.stats.Snapshot()
	if snapshot.Total == 0 {
		return
	}

	day := s.now().UTC().Format(dayLayout)

	if s.repository != nil {
		if err := s.repository.Save(day, snapshot); err != nil {
			s.logger.Errorw("Failed to save stats snapshot", "day", day, "error", err)
		}
	}

	description := fmt.Sprintf("Scan report for %s", day)
	for _, viewer := range s.viewers {
		if err := viewer.Show(description, snapshot); err != nil {
			s.logger.Errorw("Failed to show stats report", "error", err)
		}
	}
}
