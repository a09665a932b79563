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
	"errors"
	"sync"
	"tier-scanner/domain/entities"
	"tier-scanner/logging"

	"github.com/uber-go/tally/v4"
)

const DefaultSubscriberBuffer = 64

var ErrBroadcasterClosed = errors.New("broadcaster closed")

type StatsSource interface {
	Snapshot() entities.StatsSnapshot
}

type Subscriber struct {
	id     uint64
	events chan *entities.Event
}

// Events is closed when the subscriber is removed or the broadcaster closes.
func (s *Subscriber) Events() <-chan *entities.Event {
	return s.events
}

// Broadcaster fans events out to every connected client. A subscriber that
// does not keep up loses events, it never slows down the others.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[uint64]*Subscriber
	next        uint64
	closed      bool
	buffer      int
	stats       StatsSource
	metrics     tally.Scope
	logger      logging.Logger
}

func NewBroadcaster(stats StatsSource, buffer int, metrics tally.Scope, logger logging.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	return &Broadcaster{subscribers: make(map[uint64]*Subscriber), buffer: buffer, stats: stats, metrics: metrics, logger: logger}
}

// Subscribe registers a client. The first event it receives is the current
// stats snapshot.
func (b *Broadcaster) Subscribe() (*Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBroadcasterClosed
	}

	b.next++
	subscriber := &Subscriber{id: b.next, events: make(chan *entities.Event, b.buffer)}

	event := entities.NewStatsEvent(b.stats.Snapshot())
	subscriber.events <- &event
	b.subscribers[subscriber.id] = subscriber

	b.logger.Debugw("Subscriber connected", "subscriber", subscriber.id, "subscribers", len(b.subscribers))

	return subscriber, nil
}

func (b *Broadcaster) Unsubscribe(subscriber *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[subscriber.id]; !ok {
		return
	}

	delete(b.subscribers, subscriber.id)
	close(subscriber.events)

	b.logger.Debugw("Subscriber disconnected", "subscriber", subscriber.id, "subscribers", len(b.subscribers))
}

// Publish returns how many subscribers received the event.
func (b *Broadcaster) Publish(event *entities.Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for _, subscriber := range b.subscribers {
		select {
		case subscriber.events <- event:
			delivered++
		default:
			b.metrics.Counter("events_dropped").Inc(1)
			b.logger.Debugw("Slow subscriber, event dropped", "subscriber", subscriber.id, "type", event.Type)
		}
	}

	return delivered
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}

// Close ends every subscriber stream, later subscriptions fail.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for id, subscriber := range b.subscribers {
		close(subscriber.events)
		delete(b.subscribers, id)
	}
}
