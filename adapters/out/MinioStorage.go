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
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioRequestTimeout = 10 * time.Minute

type MinioConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Buckets are created at startup when missing.
	Buckets []string
}

// MinioStorage serves minio:// locations and any other S3 compatible server.
type MinioStorage struct {
	client *minio.Client
}

func NewMinioStorage(ctx context.Context, config MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client. err: %w", err)
	}

	for _, bucket := range config.Buckets {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to check bucket. bucket: %s, err: %w", bucket, err)
		}

		if exists {
			continue
		}

		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: config.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket. bucket: %s, err: %w", bucket, err)
		}
	}

	return &MinioStorage{client: client}, nil
}

func (m *MinioStorage) Get(bucket, name string, writer io.WriterAt) error {
	ctx, cancel := context.WithTimeout(context.Background(), minioRequestTimeout)
	defer cancel()

	object, err := m.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer object.Close()

	_, err = io.Copy(io.NewOffsetWriter(writer, 0), object)

	return err
}

func (m *MinioStorage) Size(bucket, name string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), minioRequestTimeout)
	defer cancel()

	info, err := m.client.StatObject(ctx, bucket, name, minio.StatObjectOptions{})
	if err != nil {
		return 0, err
	}

	return info.Size, nil
}

func (m *MinioStorage) Put(bucket, name string, reader io.Reader) error {
	ctx, cancel := context.WithTimeout(context.Background(), minioRequestTimeout)
	defer cancel()

	_, err := m.client.PutObject(ctx, bucket, name, reader, -1, minio.PutObjectOptions{ContentType: "application/octet-stream"})

	return err
}
