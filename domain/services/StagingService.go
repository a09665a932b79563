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

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"tier-scanner/domain/entities"
	ports "tier-scanner/domain/ports/out"
	"tier-scanner/logging"

	"github.com/spf13/afero"
)

const (
	LocalScheme   = "file"
	stagedName    = "content"
	defaultScheme = LocalScheme
)

var ErrInvalidLocation = errors.New("invalid file location")

// Location is where the file of a job lives. Remote locations carry a
// bucket, local ones only a key relative to the local source root.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseLocation accepts s3://bucket/key, minio://bucket/key, file://path and
// bare paths, which are read from the local source root.
func ParseLocation(filePath string) (Location, error) {
	if !strings.Contains(filePath, "://") {
		return Location{Scheme: defaultScheme, Key: strings.TrimPrefix(path.Clean("/"+filePath), "/")}, nil
	}

	u, err := url.Parse(filePath)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	if u.Scheme == LocalScheme {
		return Location{Scheme: LocalScheme, Key: strings.TrimPrefix(path.Clean("/"+u.Host+u.Path), "/")}, nil
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Location{}, fmt.Errorf("%w: %s", ErrInvalidLocation, filePath)
	}

	return Location{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
}

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../mocks/mock_stager.go -package=mocks -source=StagingService.go
type Stager interface {
	Stage(ctx context.Context, job entities.ScanJob) (ports.LocalStorage, string, error)
	Release(storage ports.LocalStorage)
}

// StagingService copies the file of a job into a private local storage
// before the scanners read it.
type StagingService struct {
	localStorageFactory  ports.LocalStorageFactory
	remoteStorageFactory ports.RemoteStorageFactory
	source               afero.Fs
	logger               logging.Logger
}

// NewStagingService reads local locations from source. A nil
// remoteStorageFactory disables remote locations.
func NewStagingService(localStorageFactory ports.LocalStorageFactory, remoteStorageFactory ports.RemoteStorageFactory, source afero.Fs, logger logging.Logger) *StagingService {
	return &StagingService{localStorageFactory: localStorageFactory, remoteStorageFactory: remoteStorageFactory, source: source, logger: logger}
}

// Stage returns the storage holding the file and its name inside it. The
// storage is returned even on error so the caller can release it.
func (s *StagingService) Stage(ctx context.Context, job entities.ScanJob) (ports.LocalStorage, string, error) {
	location, err := ParseLocation(job.FilePath)
	if err != nil {
		return nil, "", err
	}

	localStorage, err := s.localStorageFactory.GetLocalStorage(job.FileSizeBytes)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get local storage. err: %w", err)
	}

	localFile, err := localStorage.Create(stagedName)
	if err != nil {
		return localStorage, "", fmt.Errorf("failed to create local file. err: %w", err)
	}
	defer localFile.Close()

	if location.Scheme == LocalScheme {
		err = s.copyLocal(ctx, location.Key, localFile)
	} else {
		err = s.download(location, localFile)
	}

	if err != nil {
		s.logger.Errorw("Failed to stage file", "error", err, "jobId", job.ID, "location", job.FilePath)
		return localStorage, stagedName, err
	}

	return localStorage, stagedName, nil
}

func (s *StagingService) download(location Location, localFile io.WriterAt) error {
	if s.remoteStorageFactory == nil {
		return fmt.Errorf("remote storage disabled. scheme: %s", location.Scheme)
	}

	remoteStorage, err := s.remoteStorageFactory.GetRemoteStorage(location.Scheme)
	if err != nil {
		return fmt.Errorf("failed to get remote storage. err: %w", err)
	}

	if err := remoteStorage.Get(location.Bucket, location.Key, localFile); err != nil {
		return fmt.Errorf("failed to request key from bucket. bucket: %s, key: %s, err: %w", location.Bucket, location.Key, err)
	}

	return nil
}

func (s *StagingService) copyLocal(ctx context.Context, key string, localFile io.Writer) error {
	if s.source == nil {
		return fmt.Errorf("local source disabled")
	}

	sourceFile, err := s.source.Open(key)
	if err != nil {
		return fmt.Errorf("failed to open source file. key: %s, err: %w", key, err)
	}
	defer sourceFile.Close()

	if _, err := io.Copy(localFile, readerWithContext{ctx: ctx, reader: sourceFile}); err != nil {
		return fmt.Errorf("failed to copy source file. key: %s, err: %w", key, err)
	}

	return nil
}

func (s *StagingService) Release(storage ports.LocalStorage) {
	if storage == nil {
		return
	}

	if err := s.localStorageFactory.DestroyStorage(storage.GetID()); err != nil {
		s.logger.Warnw("Failed to destroy local storage", "error", err, "storageId", storage.GetID())
	}
}

type readerWithContext struct {
	ctx    context.Context
	reader io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	return r.reader.Read(p)
}
