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
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
)

type SNS struct {
	svc *sns.SNS
}

func (s *SNS) Init(awsSession *session.Session, awsConfig *aws.Config) {
	s.svc = sns.New(awsSession, awsConfig)
}

func (s *SNS) SendSMS(phone, message string) error {
	_, err := s.svc.Publish(&sns.PublishInput{
		Message:     aws.String(message),
		PhoneNumber: aws.String(phone),
	})

	return err
}
