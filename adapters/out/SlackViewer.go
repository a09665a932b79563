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
	"fmt"
	"os"
	"tier-scanner/common"
	"tier-scanner/domain/entities"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
)

type SlackViewer struct {
	token     string
	webhook   string
	channelID string
}

func NewSlackViewer(token, webhook, channelID string) *SlackViewer {
	return &SlackViewer{token: token, webhook: webhook, channelID: channelID}
}

// Show uploads the report as a text file, the message body is too narrow
// for the table.
func (s *SlackViewer) Show(description string, snapshot entities.StatsSnapshot) error {
	textPath, err := s.generateText(snapshot)
	if err != nil {
		return fmt.Errorf("cant send message to slack. %w", err)
	}
	defer os.Remove(textPath)

	description = fmt.Sprintf("%s\n%s", description, "Tip: Use full screen or download the file to get data formatted")
	_, err = s.sendFileToChannel(description, textPath)

	return err
}

func (s *SlackViewer) SendMessage(message string) error {
	msg := slack.WebhookMessage{
		Username: "tier-scanner",
		Channel:  s.channelID,
		Text:     message,
	}

	return slack.PostWebhook(s.webhook, &msg)
}

func (s *SlackViewer) generateText(snapshot entities.StatsSnapshot) (string, error) {
	tmpPath := fmt.Sprintf("%s/%s.txt", os.TempDir(), uuid.New())

	file, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary result file. %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(FormatStatsTable(snapshot)); err != nil {
		return "", fmt.Errorf("failed to write data to result file. %w", err)
	}

	return tmpPath, nil
}

func (s *SlackViewer) sendFileToChannel(bannerMsg, filepath string) (string, error) {
	api := slack.New(s.token)
	parameters := slack.FileUploadParameters{
		File:           filepath,
		Channels:       []string{s.channelID},
		Title:          "Scan report",
		InitialComment: bannerMsg,
	}

	file, err := api.UploadFile(parameters)
	if err != nil {
		return "", fmt.Errorf("failed to upload file to the channel. %s", err)
	}

	var threadID string
	if shares, ok := file.Shares.Private[s.channelID]; ok && len(shares) != 0 {
		threadID = shares[0].Ts
	} else if shares, ok := file.Shares.Public[s.channelID]; ok && len(shares) != 0 {
		threadID = shares[0].Ts
	}

	return threadID, nil
}

// FormatStatsTable renders a snapshot as a fixed width table.
func FormatStatsTable(snapshot entities.StatsSnapshot) string {
	const lineFormat = "%-12s %-12s %-12s %-12s %-12s %-16s\n"

	return fmt.Sprintf(lineFormat, "Total", "Clean", "Suspicious", "Infected", "Errors", "Avg scan (ms)") +
		fmt.Sprintf(lineFormat,
			common.ConvertNumberToHumanReadable(snapshot.Total),
			common.ConvertNumberToHumanReadable(snapshot.Clean),
			common.ConvertNumberToHumanReadable(snapshot.Suspicious),
			common.ConvertNumberToHumanReadable(snapshot.Infected),
			common.ConvertNumberToHumanReadable(snapshot.Errors),
			fmt.Sprintf("%.1f", snapshot.AverageScanTimeMs))
}
