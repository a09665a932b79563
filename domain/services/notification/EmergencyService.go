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
	"sort"
	"strings"
	"sync"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
)

const maxListedJobs = 20

// EmergencyService batches infected verdicts and alerts the operators once
// per round.
type EmergencyService struct {
	mu             sync.Mutex
	infectedByTier map[string][]string
	viewers        []out.Viewer
	logger         logging.Logger
}

func NewEmergencyService(viewers []out.Viewer, logger logging.Logger) *EmergencyService {
	return &EmergencyService{infectedByTier: make(map[string][]string), viewers: viewers, logger: logger}
}

func (e *EmergencyService) Update(_ context.Context, result entities.AggregatedResult) {
	if result.Status != entities.Infected {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.infectedByTier[result.Tier] = append(e.infectedByTier[result.Tier], result.JobID)
}

func (e *EmergencyService) UpdateGlobal(context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.infectedByTier) == 0 {
		return
	}

	message := e.message()
	delivered := false

	for _, viewer := range e.viewers {
		if err := viewer.SendMessage(message); err != nil {
			e.logger.Errorw("Failed to send emergency notification", "error", err)
			continue
		}

		delivered = true
	}

	// Require at least a single success to clean the results
	if delivered || len(e.viewers) == 0 {
		e.infectedByTier = make(map[string][]string)
	}
}

func (e *EmergencyService) message() string {
	tiers := make([]string, 0, len(e.infectedByTier))
	for tier := range e.infectedByTier {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)

	var builder strings.Builder
	builder.WriteString("Infected files detected, please check the logs for more information:\n")

	for _, tier := range tiers {
		jobs := e.infectedByTier[tier]
		listed := jobs
		if len(listed) > maxListedJobs {
			listed = listed[:maxListedJobs]
		}

		builder.WriteString(fmt.Sprintf("%s -> %d (%s)\n", tier, len(jobs), strings.Join(listed, ", ")))
	}

	return builder.String()
}
