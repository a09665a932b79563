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

package stages

import (
	"context"
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/logging"
)

type Cleanup[T any] struct {
	Request *T
	Error   error
}

type Stage[T, V any] struct {
	handler      entities.Handler[T, V]
	inputChannel <-chan *T
	logger       logging.Logger
	output       chan *V
	cleanup      chan *Cleanup[T]
	done         chan struct{}
}

// NewStage builds a stage reading from inputChannel. A nil cleanupChannel
// means handler errors are only logged.
func NewStage[T any, V any](handler entities.Handler[T, V], inputChannel <-chan *T, cleanupChannel chan *Cleanup[T], logger logging.Logger) Stage[T, V] {
	output := make(chan *V)

	return Stage[T, V]{
		handler:      handler,
		inputChannel: inputChannel,
		logger:       logger,
		output:       output,
		cleanup:      cleanupChannel,
		done:         make(chan struct{}),
	}
}

func (s *Stage[T, V]) Output() chan *V {
	return s.output
}

// Done is closed once the stage stopped and drained its input.
func (s *Stage[T, V]) Done() <-chan struct{} {
	return s.done
}

func (s *Stage[T, V]) Process(ctx context.Context) {
	s.logger.Infow("Start of stage")
	s.logger.Infow("Initializing handler", "handler", s.handler.Name())

	go s.doProcess(ctx)
}

func (s *Stage[T, V]) doProcess(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.logger.Infow("End of stage")
			return
		case input, ok := <-s.inputChannel:
			if !ok {
				s.logger.Infow("End of stage", "reason", "input closed")
				return
			}
			s.safeHandle(ctx, input)
		}
	}
}

// drain handles whatever is already buffered, without waiting for more.
func (s *Stage[T, V]) drain() {
	for {
		select {
		case input, ok := <-s.inputChannel:
			if !ok {
				return
			}
			s.safeHandle(context.Background(), input)
		default:
			return
		}
	}
}

func (s *Stage[T, V]) safeHandle(ctx context.Context, input *T) {
	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("%v", r)
			s.logger.Errorw("Panic catch during handler execution", "err", panicErr)
			s.report(input, panicErr)
		}
	}()

	writer := entities.NewOutputWriter[V](s.output)

	err := s.handler.Handle(ctx, input, writer)
	if err != nil {
		s.logger.Warnw("Handler failed", "handler", s.handler.Name(), "err", err)
		s.report(input, err)
	}
}

func (s *Stage[T, V]) report(input *T, err error) {
	if s.cleanup == nil {
		return
	}

	s.cleanup <- &Cleanup[T]{Request: input, Error: err}
}
