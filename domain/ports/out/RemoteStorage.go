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

import "io"

type RemoteStorage interface {
	RemoteStorageReader
	RemoteStorageWriter
}

// Implemented by AWS S3 and MinIO.
type RemoteStorageReader interface {
	Get(bucket, name string, writer io.WriterAt) error
	Size(bucket, name string) (int64, error)
}

type RemoteStorageWriter interface {
	Put(bucket, name string, reader io.Reader) error
}

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_remote_storage.go -package=mocks -source=RemoteStorage.go
type RemoteStorageFactory interface {
	GetRemoteStorage(storageType string) (RemoteStorage, error)
}
