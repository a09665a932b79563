//go:build e2e

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
package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	adapterentities "tier-scanner/adapters/entities"
	"tier-scanner/app"
	"tier-scanner/domain/entities"

	"github.com/gofiber/fiber/v2"
)

const baseURL = "http://localhost:3000"

func (suite *E2E) submit(fileName, tier string, content []byte) (int, adapterentities.SubmitResponse) {
	sum := sha256.Sum256(content)
	request := adapterentities.SubmitRequest{
		FileID:        "file-" + fileName,
		FilePath:      fileName,
		FileName:      fileName,
		FileSizeBytes: int64(len(content)),
		FileHash:      hex.EncodeToString(sum[:]),
		Tier:          tier,
		CallerID:      "e2e-" + tier,
	}

	body, err := json.Marshal(request)
	suite.Require().NoError(err)

	httpResponse, err := http.Post(baseURL+"/v1/scans", fiber.MIMEApplicationJSON, bytes.NewReader(body))
	suite.Require().NoError(err)
	defer httpResponse.Body.Close()

	var response adapterentities.SubmitResponse
	suite.Require().NoError(json.NewDecoder(httpResponse.Body).Decode(&response))

	return httpResponse.StatusCode, response
}

func (suite *E2E) waitResult(jobID string) entities.AggregatedResult {
	var result entities.AggregatedResult

	suite.Require().Eventually(func() bool {
		httpResponse, err := http.Get(fmt.Sprintf("%s/v1/scans/%s", baseURL, jobID))
		if err != nil {
			return false
		}
		defer httpResponse.Body.Close()

		if httpResponse.StatusCode != http.StatusOK {
			return false
		}

		var response adapterentities.ScanResponse
		if err := json.NewDecoder(httpResponse.Body).Decode(&response); err != nil || response.Result == nil {
			return false
		}

		result = *response.Result

		return true
	}, time.Minute, 200*time.Millisecond)

	return result
}

func (suite *E2E) TestHTTPScan() {
	ctx, cancel := context.WithCancel(context.Background())

	clean := []byte("quarterly report, nothing to see here\n")
	eicar := []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)
	suite.writeFile("report.txt", clean)
	suite.writeFile("eicar.txt", eicar)

	stopped := make(chan error, 1)
	go func() {
		stopped <- app.Start(ctx)
	}()

	defer func() {
		cancel()
		select {
		case err := <-stopped:
			suite.NoError(err)
		case <-time.After(time.Minute):
			suite.Fail("daemon did not stop")
		}
	}()

	suite.Require().Eventually(func() bool {
		resp, err := http.Get(baseURL + "/healthcheck/readiness")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		return resp.StatusCode == fiber.StatusOK
	}, time.Minute, time.Second)

	status, admitted := suite.submit("report.txt", "free", clean)
	suite.Require().Equal(http.StatusAccepted, status)
	suite.Equal(entities.Queued, admitted.Status)

	result := suite.waitResult(admitted.JobID)
	suite.Equal(entities.Clean, result.Status)
	suite.ElementsMatch([]entities.ScannerID{entities.BasicValidation, entities.HeuristicScanner}, result.Scanners)

	status, admitted = suite.submit("eicar.txt", "enterprise", eicar)
	suite.Require().Equal(http.StatusAccepted, status)

	result = suite.waitResult(admitted.JobID)
	suite.NotEqual(entities.Clean, result.Status)
	suite.Contains(result.PerEngine, entities.RuleScanner)

	status, _ = suite.submit("unknown.txt", "platinum", clean)
	suite.Equal(http.StatusBadRequest, status)

	// Two admissions left for the free caller today, then the quota kicks in.
	suite.submit("report.txt", "free", clean)
	suite.submit("report.txt", "free", clean)
	status, _ = suite.submit("report.txt", "free", clean)
	suite.Equal(http.StatusTooManyRequests, status)

	httpResponse, err := http.Get(baseURL + "/v1/files/file-report.txt/history")
	suite.Require().NoError(err)
	defer httpResponse.Body.Close()

	var history adapterentities.HistoryResponse
	suite.Require().NoError(json.NewDecoder(httpResponse.Body).Decode(&history))
	suite.NotEmpty(history.Results)
}
