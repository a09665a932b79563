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
	"fmt"
	"tier-scanner/domain/ports/out"
)

const (
	StorageS3    = "s3"
	StorageMinio = "minio"
)

// RemoteStorageFactory resolves the scheme of a file location to the
// storage serving it. Unconfigured storages are reported as unsupported.
type RemoteStorageFactory struct {
	storages map[string]out.RemoteStorage
}

func NewRemoteStorageFactory() *RemoteStorageFactory {
	return &RemoteStorageFactory{storages: make(map[string]out.RemoteStorage)}
}

func (r *RemoteStorageFactory) Register(storageType string, storage out.RemoteStorage) *RemoteStorageFactory {
	r.storages[storageType] = storage
	return r
}

func (r *RemoteStorageFactory) GetRemoteStorage(storageType string) (out.RemoteStorage, error) {
	storage, ok := r.storages[storageType]
	if !ok {
		return nil, fmt.Errorf("there is no such storage type %s", storageType)
	}

	return storage, nil
}
