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
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"tier-scanner/domain/entities"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 3000
	defaultMaxRequestSize = 52428800
	defaultUpdateInterval = 60
	defaultMaxStorageSize = 2147483648

	QueueMemory = "memory"
	QueueRedis  = "redis"

	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type AppConfig struct {
	Aws          AWS
	Scanner      Scanner
	Tiers        []Tier
	Queue        Queue
	Store        Store
	Redis        Redis
	Minio        Minio
	Notification Notification
	HTTPServer   HTTPServer
}

type HTTPServer struct {
	AuthorizationKeys []string
	Profiler          bool
	Swagger           bool
	Metrics           bool
	MaxRequestSize    int
	Port              int
}

type AWS struct {
	Queue     string
	Region    string
	Resolver  string
	AccessKey string
	SecretKey string
}

type Scanner struct {
	Workers        int
	PollInterval   time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Timeouts       Timeouts
	Rules          Rules
	Clamd          Clamd
	Virustotal     VirusTotal
	MaxStorageSize int64
	LocalRoot      string
	DebugLog       bool
}

// Timeouts is a struct rather than a map because viper lowercases map keys.
type Timeouts struct {
	BasicValidation   time.Duration
	SignatureScanner  time.Duration
	RuleScanner       time.Duration
	ReputationScanner time.Duration
	HeuristicScanner  time.Duration
}

type Rules struct {
	Dir       string
	ScanLimit int64
}

type Clamd struct {
	Address string
}

type VirusTotal struct {
	APIkey      string
	HourLimit   int
	MinuteLimit int
}

type Tier struct {
	Name             string
	Scanners         []string
	MaxFileSizeBytes int64
	MaxJobsPerDay    int
	BasePriority     int
	RulePreset       string
}

type Queue struct {
	Backend        string
	Prefix         string
	Lease          time.Duration
	ReaperInterval time.Duration
}

type Store struct {
	Driver string
	DSN    string
}

type Redis struct {
	URL      string
	Password string
	UseTLS   bool
}

type Minio struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Buckets   []string
}

type Notification struct {
	UpdateInterval   int
	SubscriberBuffer int
	KeepAlive        time.Duration
	Slack            Slack
	Phones           []string
	Quarantine       Quarantine
}

type Slack struct {
	ChannelID string
	AppToken  string
	Webhook   string
}

type Quarantine struct {
	StorageType string
	Bucket      string
}

func NewConfig() *AppConfig {
	return &AppConfig{
		Aws: AWS{
			Region: "us-east-1",
		},
		Scanner: Scanner{
			Workers:        4,
			PollInterval:   500 * time.Millisecond,
			MaxAttempts:    3,
			RetryBaseDelay: time.Second,
			RetryMaxDelay:  30 * time.Second,
			Timeouts: Timeouts{
				BasicValidation:   5 * time.Second,
				SignatureScanner:  30 * time.Second,
				RuleScanner:       30 * time.Second,
				ReputationScanner: 10 * time.Second,
				HeuristicScanner:  10 * time.Second,
			},
			Rules:          Rules{ScanLimit: 100 * 1024 * 1024},
			Virustotal:     VirusTotal{HourLimit: 20, MinuteLimit: 4},
			MaxStorageSize: defaultMaxStorageSize,
			LocalRoot:      "/",
		},
		Tiers: []Tier{
			{Name: "free", Scanners: []string{"basicValidation", "signatureScanner"}, MaxFileSizeBytes: 10 * 1024 * 1024, MaxJobsPerDay: 100, BasePriority: 100, RulePreset: "reduced"},
			{Name: "pro", Scanners: []string{"basicValidation", "signatureScanner", "ruleScanner", "reputationScanner"}, MaxFileSizeBytes: 100 * 1024 * 1024, MaxJobsPerDay: 1000, BasePriority: 50, RulePreset: "reduced"},
			{Name: "enterprise", Scanners: []string{"basicValidation", "signatureScanner", "ruleScanner", "reputationScanner", "heuristicScanner"}, MaxFileSizeBytes: 1024 * 1024 * 1024, MaxJobsPerDay: 10000, BasePriority: 10, RulePreset: "full"},
		},
		Queue: Queue{
			Backend:        QueueMemory,
			Prefix:         "tier-scanner",
			Lease:          5 * time.Minute,
			ReaperInterval: 30 * time.Second,
		},
		Store: Store{
			Driver: StoreMemory,
		},
		Notification: Notification{
			UpdateInterval:   defaultUpdateInterval,
			SubscriberBuffer: 64,
			KeepAlive:        15 * time.Second,
			Quarantine:       Quarantine{StorageType: "s3"},
		},
		HTTPServer: HTTPServer{
			Port:           defaultPort,
			MaxRequestSize: defaultMaxRequestSize,
		},
	}
}

// TierPolicies converts the configured tiers, rejecting unknown scanners.
func (c AppConfig) TierPolicies() ([]entities.TierPolicy, error) {
	policies := make([]entities.TierPolicy, 0, len(c.Tiers))

	for _, tier := range c.Tiers {
		scanners := make([]entities.ScannerID, 0, len(tier.Scanners))
		for _, name := range tier.Scanners {
			id := entities.ScannerID(name)
			if !entities.IsKnownScanner(id) {
				return nil, fmt.Errorf("tier %q uses unknown scanner %q", tier.Name, name)
			}

			if slices.Contains(scanners, id) {
				return nil, fmt.Errorf("tier %q lists scanner %q twice", tier.Name, name)
			}

			scanners = append(scanners, id)
		}

		preset := entities.RulePreset(tier.RulePreset)
		if preset == "" {
			preset = entities.ReducedRules
		}

		if preset != entities.ReducedRules && preset != entities.FullRules {
			return nil, fmt.Errorf("tier %q uses unknown rule preset %q", tier.Name, tier.RulePreset)
		}

		policies = append(policies, entities.TierPolicy{
			Name:             tier.Name,
			AllowedScanners:  scanners,
			MaxFileSizeBytes: tier.MaxFileSizeBytes,
			MaxJobsPerDay:    tier.MaxJobsPerDay,
			BasePriority:     tier.BasePriority,
			RulePreset:       preset,
		})
	}

	return policies, nil
}

func (t Timeouts) ByScanner() map[entities.ScannerID]time.Duration {
	return map[entities.ScannerID]time.Duration{
		entities.BasicValidation:   t.BasicValidation,
		entities.SignatureScanner:  t.SignatureScanner,
		entities.RuleScanner:       t.RuleScanner,
		entities.ReputationScanner: t.ReputationScanner,
		entities.HeuristicScanner:  t.HeuristicScanner,
	}
}

func (c AppConfig) usesRedis() bool {
	return c.Queue.Backend == QueueRedis
}

func validateConfig(config AppConfig) error {
	var errs []error

	if config.Aws.Region == "" {
		errs = append(errs, errors.New("no AWS region specified"))
	}

	if len(config.Tiers) == 0 {
		errs = append(errs, errors.New("at least one tier must be configured"))
	}

	for _, tier := range config.Tiers {
		if tier.Name == "" {
			errs = append(errs, errors.New("tier without name"))
		}

		if tier.MaxFileSizeBytes <= 0 || tier.MaxJobsPerDay <= 0 || tier.BasePriority < 0 {
			errs = append(errs, fmt.Errorf("tier %q limits must be positive", tier.Name))
		}
	}

	if _, err := config.TierPolicies(); err != nil {
		errs = append(errs, err)
	}

	if config.Notification.UpdateInterval <= 0 {
		errs = append(errs, errors.New("notification update interval must be positive"))
	}

	if config.Scanner.Workers <= 0 || config.Scanner.MaxAttempts <= 0 {
		errs = append(errs, errors.New("scanner workers and max attempts must be positive"))
	}

	switch config.Queue.Backend {
	case QueueMemory:
	case QueueRedis:
		if config.Queue.Lease <= 0 || config.Queue.ReaperInterval <= 0 {
			errs = append(errs, errors.New("queue lease and reaper interval must be positive"))
		}

		timeouts := config.Scanner.Timeouts.ByScanner()
		for _, tier := range config.Tiers {
			var budget time.Duration
			for _, scanner := range tier.Scanners {
				budget += timeouts[entities.ScannerID(scanner)]
			}

			if config.Queue.Lease > 0 && config.Queue.Lease <= budget {
				errs = append(errs, fmt.Errorf("queue lease %s must exceed the %s scanner budget of tier %q", config.Queue.Lease, budget, tier.Name))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue backend %q", config.Queue.Backend))
	}

	if config.usesRedis() && config.Redis.URL == "" {
		errs = append(errs, errors.New("no Redis URL specified"))
	}

	switch config.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if config.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("no DSN specified for store driver %q", config.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", config.Store.Driver))
	}

	return errors.Join(errs...)
}

// see supershal approach https://github.com/spf13/viper/issues/188
func LoadConfig() (AppConfig, error) {
	const keyDelimiter = "/"
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))

	// set default values in viper.
	// Viper needs to know if a key exists in order to override it.
	// https://github.com/spf13/viper/issues/188
	b, err := yaml.Marshal(NewConfig())
	if err != nil {
		return AppConfig{}, err
	}

	defaultConfig := bytes.NewReader(b)

	v.AddConfigPath(os.Getenv("CONFIG_DIR"))
	v.AddConfigPath("../resources/")
	v.AddConfigPath(".")
	v.AddConfigPath("/app/data/")
	v.AddConfigPath("/app/config/")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.MergeConfig(defaultConfig); err != nil {
		return AppConfig{}, err
	}

	// If file not found, return error
	if err := v.MergeInConfig(); err != nil {
		return AppConfig{}, err
	}

	// tell viper to overwrite env variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	// refresh configuration with all merged values
	config := AppConfig{}
	err = v.Unmarshal(&config)

	if err != nil {
		return AppConfig{}, err
	}

	err = validateConfig(config)
	if err != nil {
		return AppConfig{}, err
	}

	return config, nil
}
