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
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/services/notification"
	"tier-scanner/logging"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const (
	DefaultKeepAlive  = 15 * time.Second
	errStreamShutdown = "event stream is shutting down"
)

type EventSource interface {
	Subscribe() (*notification.Subscriber, error)
	Unsubscribe(subscriber *notification.Subscriber)
}

type EventController struct {
	source    EventSource
	keepAlive time.Duration
	logger    logging.Logger
}

func NewEventController(source EventSource, keepAlive time.Duration, logger logging.Logger) EventController {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}

	return EventController{source: source, keepAlive: keepAlive, logger: logger}
}

// Stream
// @Summary		Streams scan progress, results and stats as server-sent events
// @Tags		events
// @Produce		text/event-stream
// @Success		200 {object} entities.Event
// @Security	ApiKey
// @Router      /events [get]
func (e *EventController) Stream(c *fiber.Ctx) error {
	subscriber, err := e.source.Subscribe()
	if errors.Is(err, notification.ErrBroadcasterClosed) {
		return fiber.NewError(fiber.StatusServiceUnavailable, errStreamShutdown)
	}

	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer e.source.Unsubscribe(subscriber)

		ticker := time.NewTicker(e.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-subscriber.Events():
				if !ok {
					return
				}

				if err := writeEvent(w, event); err != nil {
					e.logger.Debugw("Event stream closed by client", "error", err)
					return
				}

			case <-ticker.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}

				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, event *entities.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}

	return w.Flush()
}
