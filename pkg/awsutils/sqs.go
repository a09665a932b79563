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

package awsutils

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
)

const (
	maxMessagesToFetch = 10
	pollWaitTime       = 20
)

type SQS struct {
	svc *sqs.SQS
}

func (s *SQS) Init(awsSession *session.Session, awsConfig *aws.Config) {
	s.svc = sqs.New(awsSession, awsConfig)
}

// ReceiveMessageFromSQS long polls the queue, an empty batch is not an error.
func (s *SQS) ReceiveMessageFromSQS(ctx context.Context, queueURL string) ([]*sqs.Message, error) {
	result, err := s.svc.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		AttributeNames: []*string{
			aws.String(sqs.MessageSystemAttributeNameSentTimestamp),
			aws.String(sqs.MessageSystemAttributeNameApproximateReceiveCount),
		},
		MessageAttributeNames: []*string{
			aws.String(sqs.QueueAttributeNameAll),
		},
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: aws.Int64(maxMessagesToFetch),
		WaitTimeSeconds:     aws.Int64(pollWaitTime),
	})
	if err != nil {
		return nil, err
	}

	return result.Messages, nil
}

func (s *SQS) DeleteMessageFromSQS(ctx context.Context, queueURL string, message *sqs.Message) error {
	_, err := s.svc.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})

	return err
}
