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
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const (
	downloadConcurrency = 1 // Staged files may live in memory, parts must arrive in order.
	uploadPartSize      = 64 * 1024 * 1024
	uploadConcurrency   = 4
)

type S3 struct {
	svc        *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
}

func (s *S3) Init(awsSession *session.Session, awsConfig *aws.Config) {
	s.svc = s3.New(awsSession, awsConfig)

	s.downloader = s3manager.NewDownloaderWithClient(s.svc, func(d *s3manager.Downloader) {
		d.Concurrency = downloadConcurrency
	})

	s.uploader = s3manager.NewUploaderWithClient(s.svc, func(u *s3manager.Uploader) {
		u.PartSize = uploadPartSize
		u.Concurrency = uploadConcurrency
	})
}

// Downloads a file from S3. An empty rangeHeader fetches the whole object.
// https://docs.aws.amazon.com/sdk-for-go/api/service/s3/s3manager/#Downloader
func (s *S3) DownloadFromS3Bucket(file io.WriterAt, bucket, item, rangeHeader string) error {
	// Some items have URL encoded parts that were causing download issues.
	item, err := url.QueryUnescape(item)
	if err != nil {
		return err
	}

	object := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(item),
	}

	if rangeHeader != "" {
		object.Range = aws.String(rangeHeader)
	}

	_, err = s.downloader.Download(file, object)

	return err
}

// Writes file to AWS using some parallelism.
func (s *S3) UploadToS3Bucket(data io.Reader, bucket, key string) error {
	_, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	})

	return err
}

func (s *S3) ObjectSize(bucket, key string) (int64, error) {
	key, err := url.QueryUnescape(key)
	if err != nil {
		return 0, err
	}

	head, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, err
	}

	return aws.Int64Value(head.ContentLength), nil
}
