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
package config

import (
	"testing"
	"tier-scanner/domain/entities"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("NOTIFICATION_SLACK_WEBHOOK", "https://hooks.slack.com/services/T03XXXXXX/A02AA5AAAA4/invalid")
	t.Setenv("NOTIFICATION_SLACK_APPTOKEN", "xoxb-token")
	t.Setenv("NOTIFICATION_PHONES", "+55111111111111,+55222222222222")
	t.Setenv("REDIS_PASSWORD", "password")
	t.Setenv("SCANNER_VIRUSTOTAL_APIKEY", "vtkey")
	t.Setenv("HTTPSERVER_AUTHORIZATIONKEYS", "alias1:key1,alias2:key2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/000000000100/scan-submissions", cfg.Aws.Queue)
	assert.Equal(t, "password", cfg.Redis.Password)
	assert.True(t, cfg.Redis.UseTLS)
	assert.Equal(t, "vtkey", cfg.Scanner.Virustotal.APIkey)
	assert.Equal(t, []string{"alias1:key1", "alias2:key2"}, cfg.HTTPServer.AuthorizationKeys)
	assert.Equal(t, []string{"+55111111111111", "+55222222222222"}, cfg.Notification.Phones)
	assert.Equal(t, "xoxb-token", cfg.Notification.Slack.AppToken)

	// Values from the file win over defaults, untouched keys keep them.
	assert.Equal(t, 2, cfg.Scanner.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Scanner.PollInterval)
	assert.Equal(t, 45*time.Second, cfg.Scanner.Timeouts.SignatureScanner)
	assert.Equal(t, 5*time.Second, cfg.Scanner.Timeouts.BasicValidation)
	assert.Equal(t, defaultPort, cfg.HTTPServer.Port)
	assert.Equal(t, QueueRedis, cfg.Queue.Backend)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "scanner-quarantine", cfg.Notification.Quarantine.Bucket)

	require.Len(t, cfg.Tiers, 3)
	assert.Equal(t, "free", cfg.Tiers[0].Name)
	assert.Equal(t, 50, cfg.Tiers[0].MaxJobsPerDay)
	assert.Equal(t, []string{"basicValidation", "signatureScanner"}, cfg.Tiers[0].Scanners)
}

func TestTierPolicies(t *testing.T) {
	cfg := NewConfig()

	policies, err := cfg.TierPolicies()
	require.NoError(t, err)
	require.Len(t, policies, 3)

	enterprise := policies[2]
	assert.Equal(t, "enterprise", enterprise.Name)
	assert.Equal(t, entities.KnownScanners(), enterprise.AllowedScanners)
	assert.Equal(t, entities.FullRules, enterprise.RulePreset)

	cfg.Tiers = []Tier{{Name: "x", Scanners: []string{"basicValidation"}, MaxFileSizeBytes: 1, MaxJobsPerDay: 1}}
	policies, err = cfg.TierPolicies()
	require.NoError(t, err)
	assert.Equal(t, entities.ReducedRules, policies[0].RulePreset)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *AppConfig)
	}{
		{name: "no tiers", mutate: func(cfg *AppConfig) { cfg.Tiers = nil }},
		{name: "unknown scanner", mutate: func(cfg *AppConfig) { cfg.Tiers[0].Scanners = []string{"sandbox"} }},
		{name: "duplicated scanner", mutate: func(cfg *AppConfig) { cfg.Tiers[0].Scanners = []string{"basicValidation", "basicValidation"} }},
		{name: "unknown preset", mutate: func(cfg *AppConfig) { cfg.Tiers[0].RulePreset = "paranoid" }},
		{name: "zero quota", mutate: func(cfg *AppConfig) { cfg.Tiers[1].MaxJobsPerDay = 0 }},
		{name: "zero size", mutate: func(cfg *AppConfig) { cfg.Tiers[1].MaxFileSizeBytes = 0 }},
		{name: "no workers", mutate: func(cfg *AppConfig) { cfg.Scanner.Workers = 0 }},
		{name: "redis queue without url", mutate: func(cfg *AppConfig) { cfg.Queue.Backend = QueueRedis }},
		{name: "unknown queue", mutate: func(cfg *AppConfig) { cfg.Queue.Backend = "kafka" }},
		{name: "sql store without dsn", mutate: func(cfg *AppConfig) { cfg.Store.Driver = StorePostgres }},
		{name: "unknown store", mutate: func(cfg *AppConfig) { cfg.Store.Driver = "mongo" }},
		{name: "zero update interval", mutate: func(cfg *AppConfig) { cfg.Notification.UpdateInterval = 0 }},
		{name: "zero reaper interval", mutate: func(cfg *AppConfig) {
			cfg.Queue.Backend = QueueRedis
			cfg.Redis.URL = "localhost:6379"
			cfg.Queue.ReaperInterval = 0
		}},
		{name: "lease shorter than tier scan budget", mutate: func(cfg *AppConfig) {
			cfg.Queue.Backend = QueueRedis
			cfg.Redis.URL = "localhost:6379"
			cfg.Queue.Lease = cfg.Scanner.Timeouts.BasicValidation
		}},
		{name: "no region", mutate: func(cfg *AppConfig) { cfg.Aws.Region = "" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			require.NoError(t, validateConfig(*cfg))

			tt.mutate(cfg)
			assert.Error(t, validateConfig(*cfg))
		})
	}
}
