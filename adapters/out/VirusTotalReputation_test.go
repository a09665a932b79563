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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"tier-scanner/adapters/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
	"tier-scanner/mocks"

	"github.com/go-redis/redis/v9"
	"github.com/golang/mock/gomock"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "a7bbc4b4f781e04214ecebe69a766c76681aa7eb"

func newVirusTotal(t *testing.T, allowed bool) *VirusTotalReputation {
	t.Helper()

	mockCtrl := gomock.NewController(t)
	mockRateLimiter := mocks.NewMockRateLimiter(mockCtrl)
	mockRateLimiter.EXPECT().Allow(gomock.Any()).Return(allowed)

	reputation := NewVirusTotalReputation("DUMMY_KEY", mockRateLimiter)
	httpmock.ActivateNonDefault(reputation.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	return reputation
}

func mockVirusTotalResponse(malicious, undetected int) entities.VTFileReport {
	return entities.VTFileReport{
		Data: entities.VTData{
			ID: testHash,
			Attributes: entities.VTAttributes{
				LastAnalysisStats: entities.VTAnalysisStats{
					Malicious:  malicious,
					Undetected: undetected,
				},
			},
		},
	}
}

func TestHttpErrorOnCall(t *testing.T) {
	reputation := newVirusTotal(t, true)
	httpmock.RegisterResponder("GET", fmt.Sprintf("=~%s", scanHashURL),
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	_, err := reputation.Lookup(context.Background(), testHash)

	assert.ErrorContains(t, err, "500")
}

func TestUnknownHashIsNotFound(t *testing.T) {
	reputation := newVirusTotal(t, true)
	httpmock.RegisterResponder("GET", fmt.Sprintf("=~%s", scanHashURL),
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":{"code":"NotFoundError"}}`))

	report, err := reputation.Lookup(context.Background(), testHash)

	require.NoError(t, err)
	assert.False(t, report.Found)
}

func TestReportCountsEngines(t *testing.T) {
	reputation := newVirusTotal(t, true)
	httpmock.RegisterResponder("GET", fmt.Sprintf("%s/%s", scanHashURL, testHash),
		httpmock.NewJsonResponderOrPanic(http.StatusOK, mockVirusTotalResponse(2, 48)))

	report, err := reputation.Lookup(context.Background(), testHash)

	require.NoError(t, err)
	assert.Equal(t, out.ReputationReport{Found: true, Positives: 2, Total: 50}, report)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestRateLimitedLookup(t *testing.T) {
	reputation := newVirusTotal(t, false)

	_, err := reputation.Lookup(context.Background(), testHash)

	assert.ErrorIs(t, err, ErrTooManyRequests)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestCachedReputationHit(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	mockCache := mocks.NewMockCache(mockCtrl)
	mockService := mocks.NewMockReputationService(mockCtrl)

	cached, _ := json.Marshal(out.ReputationReport{Found: true, Positives: 20, Total: 60})
	mockCache.EXPECT().Get("reputation/"+testHash).Return(string(cached), nil)

	report, err := NewCachedReputation(mockService, mockCache, logging.NewDiscardLog()).Lookup(context.Background(), testHash)

	require.NoError(t, err)
	assert.Equal(t, 20, report.Positives)
}

func TestCachedReputationMissStoresReport(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	mockCache := mocks.NewMockCache(mockCtrl)
	mockService := mocks.NewMockReputationService(mockCtrl)

	expected := out.ReputationReport{Found: true, Positives: 1, Total: 70}
	encoded, _ := json.Marshal(expected)

	mockCache.EXPECT().Get("reputation/"+testHash).Return("", redis.Nil)
	mockService.EXPECT().Lookup(gomock.Any(), testHash).Return(expected, nil)
	mockCache.EXPECT().Set("reputation/"+testHash, string(encoded), reputationTTL).Return(nil)

	report, err := NewCachedReputation(mockService, mockCache, logging.NewDiscardLog()).Lookup(context.Background(), testHash)

	require.NoError(t, err)
	assert.Equal(t, expected, report)
}

func TestCachedReputationDoesNotCacheFailures(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	mockCache := mocks.NewMockCache(mockCtrl)
	mockService := mocks.NewMockReputationService(mockCtrl)

	mockCache.EXPECT().Get(gomock.Any()).Return("", errors.New("connection refused"))
	mockService.EXPECT().Lookup(gomock.Any(), testHash).Return(out.ReputationReport{}, ErrTooManyRequests)

	_, err := NewCachedReputation(mockService, mockCache, logging.NewDiscardLog()).Lookup(context.Background(), testHash)

	assert.ErrorIs(t, err, ErrTooManyRequests)
}
