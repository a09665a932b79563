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
	"tier-scanner/adapters/entities"
	"tier-scanner/domain/ports/out"
	"time"
)

const (
	scanHashURL       = "https://www.virustotal.com/api/v3/files"
	virusTotalTimeout = 30 * time.Second
)

var ErrTooManyRequests = errors.New("too many requests for virustotal")

// VirusTotalReputation looks file hashes up in VirusTotal. Unknown hashes
// are reported as not found, never as an error.
type VirusTotalReputation struct {
	apiKey      string
	rateLimiter out.RateLimiter
	client      *http.Client
}

func NewVirusTotalReputation(apiKey string, rateLimiter out.RateLimiter) *VirusTotalReputation {
	return &VirusTotalReputation{apiKey: apiKey, rateLimiter: rateLimiter, client: &http.Client{Timeout: virusTotalTimeout}}
}

func (v *VirusTotalReputation) IsAvailable() bool {
	return v.apiKey != ""
}

func (v *VirusTotalReputation) Lookup(ctx context.Context, hash string) (out.ReputationReport, error) {
	if hash == "" {
		return out.ReputationReport{}, nil
	}

	if !v.rateLimiter.Allow(ctx) {
		return out.ReputationReport{}, ErrTooManyRequests
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", scanHashURL, hash), http.NoBody)
	if err != nil {
		return out.ReputationReport{}, fmt.Errorf("failed to encode request for virustotal. %w", err)
	}

	req.Header.Add("accept", "application/json")
	req.Header.Add("x-apikey", v.apiKey)

	res, err := v.client.Do(req)
	if err != nil {
		return out.ReputationReport{}, fmt.Errorf("request to virustotal failed. %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return out.ReputationReport{Found: false}, nil
	}

	if res.StatusCode != http.StatusOK {
		return out.ReputationReport{}, fmt.Errorf("http call failed with code %d", res.StatusCode)
	}

	var report entities.VTFileReport
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		return out.ReputationReport{}, fmt.Errorf("failed to decode virustotal response. err: %w", err)
	}

	stats := report.Data.Attributes.LastAnalysisStats

	return out.ReputationReport{Found: true, Positives: stats.Malicious, Total: stats.Engines()}, nil
}
