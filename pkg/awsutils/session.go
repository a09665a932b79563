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
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/endpoints"
	"github.com/aws/aws-sdk-go/aws/session"
)

const (
	maxIdleConnections     = 100
	idleConnectionsTimeout = 90 * time.Second
	maxIdleConnsPerHost    = 50
	maxConnsPerHost        = 100
)

type SessionConfig struct {
	Region string
	// Endpoint overrides every service endpoint, used with localstack.
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Clients shares one AWS session between S3, SQS and SNS.
type Clients struct {
	session *session.Session
}

func (c *Clients) Session(cfg SessionConfig) (*session.Session, error) {
	if c.session != nil {
		return c.session, nil
	}

	transport := http.Transport{
		MaxIdleConns:        maxIdleConnections,
		IdleConnTimeout:     idleConnectionsTimeout,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
	}

	config := aws.NewConfig().
		WithRegion(cfg.Region).
		WithS3ForcePathStyle(true).
		WithHTTPClient(&http.Client{Transport: &transport}).
		WithDisableRestProtocolURICleaning(true)

	if cfg.AccessKey != "" {
		config = config.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		config = config.WithEndpointResolver(endpoints.ResolverFunc(func(_, region string, _ ...func(*endpoints.Options)) (endpoints.ResolvedEndpoint, error) {
			return endpoints.ResolvedEndpoint{PartitionID: "aws", URL: endpoint, SigningRegion: region}, nil
		}))
	}

	awsSession, err := session.NewSessionWithOptions(session.Options{
		Config:            *config,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}

	c.session = awsSession

	return c.session, nil
}
