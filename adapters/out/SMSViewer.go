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

package out

import (
	"errors"
	"fmt"
	"tier-scanner/common"
	"tier-scanner/domain/entities"
	"tier-scanner/pkg/awsutils"

	"github.com/aws/aws-sdk-go/aws/session"
)

type SMSViewer struct {
	phones []string
	sns    awsutils.SNS
}

func NewSMSViewer(awsSession *session.Session, phones []string) *SMSViewer {
	viewer := &SMSViewer{phones: phones}
	viewer.sns.Init(awsSession, nil)

	return viewer
}

func (s *SMSViewer) Show(description string, snapshot entities.StatsSnapshot) error {
	return s.SendMessage(s.generateMessage(description, snapshot))
}

// SendMessage tries every phone, the returned error joins the failed ones.
func (s *SMSViewer) SendMessage(message string) error {
	var failures []error

	for _, phone := range s.phones {
		if err := s.sns.SendSMS(phone, message); err != nil {
			failures = append(failures, fmt.Errorf("phone %s: %w", phone, err))
		}
	}

	return errors.Join(failures...)
}

func (s *SMSViewer) generateMessage(description string, snapshot entities.StatsSnapshot) string {
	return fmt.Sprintf(
		"%s:\n"+
			"- %s scanned\n"+
			"- %s infected\n"+
			"- %s suspicious\n"+
			"- %s errors\n",
		description,
		common.ConvertNumberToHumanReadable(snapshot.Total),
		common.ConvertNumberToHumanReadable(snapshot.Infected),
		common.ConvertNumberToHumanReadable(snapshot.Suspicious),
		common.ConvertNumberToHumanReadable(snapshot.Errors))
}
