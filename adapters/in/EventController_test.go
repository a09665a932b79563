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
package in

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"tier-scanner/common"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/services/notification"
	"tier-scanner/domain/services/stats"
	scannerhttp "tier-scanner/http"
	"tier-scanner/logging"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

func newEventApp(broadcaster *notification.Broadcaster) *fiber.App {
	controller := NewEventController(broadcaster, time.Hour, logging.NewDiscardLog())

	return common.CreateFiberAppForTest([]scannerhttp.Handler{
		{HTTPMethod: fiber.MethodGet, Path: "/events", HandlerFunc: controller.Stream},
	})
}

func TestEventStreamStartsWithStats(t *testing.T) {
	tracker := stats.NewTracker()
	tracker.Record(entities.AggregatedResult{Status: entities.Clean, ScanTimeMs: 20})
	broadcaster := notification.NewBroadcaster(tracker, 8, tally.NoopScope, logging.NewDiscardLog())
	app := newEventApp(broadcaster)

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for broadcaster.Subscribers() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		event := entities.NewResultEvent(entities.AggregatedResult{JobID: "job-1", Status: entities.Infected})
		broadcaster.Publish(&event)
		broadcaster.Close()
	}()

	httpResponse, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/events", nil), -1)
	require.NoError(t, err)
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, httpResponse.StatusCode)
	assert.Equal(t, "text/event-stream", httpResponse.Header.Get(fiber.HeaderContentType))

	frames := strings.Split(strings.TrimSpace(string(body)), "\n\n")
	require.Len(t, frames, 2)
	assert.True(t, strings.HasPrefix(frames[0], "event: stats\ndata: "))
	assert.Contains(t, frames[0], `"total":1`)
	assert.True(t, strings.HasPrefix(frames[1], "event: scan_result\ndata: "))
	assert.Contains(t, frames[1], `"jobId":"job-1"`)
	assert.Equal(t, 0, broadcaster.Subscribers())
}

func TestEventStreamAfterShutdown(t *testing.T) {
	broadcaster := notification.NewBroadcaster(stats.NewTracker(), 8, tally.NoopScope, logging.NewDiscardLog())
	broadcaster.Close()
	app := newEventApp(broadcaster)

	httpResponse, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/events", nil), -1)
	require.NoError(t, err)
	defer httpResponse.Body.Close()

	assert.Equal(t, fiber.StatusServiceUnavailable, httpResponse.StatusCode)
}
