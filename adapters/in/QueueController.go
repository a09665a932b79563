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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	adapterentities "tier-scanner/adapters/entities"
	"tier-scanner/domain/services/admission"
	"tier-scanner/logging"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/uber-go/tally/v4"
)

const (
	consumeCount     = "consume_count"
	singleMessageInc = 1
	maxReceiveDelay  = time.Minute
)

// MessageQueue is the subset of the SQS client the controller consumes.
type MessageQueue interface {
	ReceiveMessageFromSQS(ctx context.Context, queueURL string) ([]*sqs.Message, error)
	DeleteMessageFromSQS(ctx context.Context, queueURL string, message *sqs.Message) error
}

// QueueController admits submissions published to a broker queue. A message
// is deleted once it was admitted or definitively rejected, transient
// failures leave it for redelivery.
type QueueController struct {
	validate  *validator.Validate
	submitter admission.Submitter
	sqs       MessageQueue
	queue     string

	logger       logging.Logger
	metricsScope tally.Scope
}

func NewQueueController(queue string, submitter admission.Submitter, sqsService MessageQueue, metricsScope tally.Scope, logger logging.Logger) QueueController {
	return QueueController{queue: queue, submitter: submitter, sqs: sqsService, logger: logger, metricsScope: metricsScope, validate: validator.New()}
}

func (q *QueueController) AsyncScan(ctx context.Context) {
	if q.queue == "" {
		q.logger.Infow("Won't attempt to read SQS queue, because none was configured")
		return
	}

	q.logger.Infow("Start of async queue processing")

	retry := backoff.NewExponentialBackOff()
	retry.MaxInterval = maxReceiveDelay
	retry.MaxElapsedTime = 0

	for {
		select {
		case <-ctx.Done():
			q.logger.Infow("End of async queue processing")
			return

		default:
			messages, err := q.sqs.ReceiveMessageFromSQS(ctx, q.queue)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}

				delay := retry.NextBackOff()
				q.logger.Errorw("Failed to obtain submissions", "error", err, "retryIn", delay)
				sleep(ctx, delay)

				continue
			}

			retry.Reset()

			for _, m := range messages {
				q.consume(ctx, m)
			}
		}
	}
}

func (q *QueueController) consume(ctx context.Context, m *sqs.Message) {
	request, err := q.extractSubmission(m)
	if err != nil {
		q.logger.Errorw("Dropping undecodable message", "error", err, "messageId", aws.StringValue(m.MessageId))
		q.delete(ctx, m)

		return
	}

	admitted, err := q.submitter.Submit(ctx, request.ToSubmission(""))

	switch {
	case err == nil:
		q.logger.Debugw("Submission admitted from queue", "jobId", admitted.JobID, "fileId", request.FileID)
		q.metricsScope.Counter(consumeCount).Inc(singleMessageInc)
		q.delete(ctx, m)

	case admission.IsRejection(err):
		q.logger.Infow("Submission from queue rejected", "error", err, "fileId", request.FileID, "tier", request.Tier)
		q.delete(ctx, m)

	default:
		q.logger.Errorw("Failed to admit submission, leaving it for redelivery", "error", err, "fileId", request.FileID)
	}
}

func (q *QueueController) extractSubmission(m *sqs.Message) (adapterentities.SubmitRequest, error) {
	var request adapterentities.SubmitRequest

	body := []byte(aws.StringValue(m.Body))

	// Messages fanned out by SNS carry the submission inside the envelope.
	var envelope adapterentities.SNSNotification
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		body = []byte(envelope.Message)
	}

	if err := json.Unmarshal(body, &request); err != nil {
		return request, fmt.Errorf("failed to unmarshal message. %w", err)
	}

	if err := q.validate.Struct(request); err != nil {
		return request, errors.Join(errors.New("invalid submission"), err)
	}

	return request, nil
}

func (q *QueueController) delete(ctx context.Context, m *sqs.Message) {
	if err := q.sqs.DeleteMessageFromSQS(ctx, q.queue, m); err != nil {
		q.logger.Errorw("Failed to delete message from queue", "error", err, "messageId", aws.StringValue(m.MessageId))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
