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
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const defaultDirPermission = 0755

type LocalStorageFS struct {
	changeFSUsage func(storageID string, nbytes int64) error
	storageID     string
	root          string
	base          afero.Fs
	afero.Fs
}

func NewLocalStorageFS(base afero.Fs, changeFSUsage func(storageID string, nbytes int64) error) (*LocalStorageFS, error) {
	// Enforcing base directory, because we don't want any file to escape the sandbox directory
	storageID := uuid.New().String()
	rootDir := filepath.Join(os.TempDir(), "tier-scanner", storageID)
	err := base.MkdirAll(rootDir, defaultDirPermission)

	if err != nil {
		return nil, err
	}

	return &LocalStorageFS{changeFSUsage: changeFSUsage, storageID: storageID, root: rootDir, base: base, Fs: afero.NewBasePathFs(base, rootDir)}, nil
}

func (d *LocalStorageFS) Create(path string) (afero.File, error) {
	if err := d.MkdirAll(filepath.Dir(path), defaultDirPermission); err != nil {
		return nil, err
	}

	file, err := d.Fs.Create(path)
	if err != nil {
		return nil, err
	}

	return NewLimitedFileSize(file, func(nbytes int64) error { return d.changeFSUsage(d.storageID, nbytes) }), nil
}

func (d *LocalStorageFS) GetID() string {
	return d.storageID
}

// Destroy removes the sandbox directory itself, not only its content.
func (d *LocalStorageFS) Destroy() error {
	return d.base.RemoveAll(d.root)
}

func (d *LocalStorageFS) Exists(path string) (bool, error) {
	return afero.Exists(d.Fs, path)
}

func (d *LocalStorageFS) Size(path string) (int64, error) {
	info, err := d.Stat(path)
	if err != nil {
		return 0, err
	}

	return info.Size(), err
}

func (d *LocalStorageFS) ListFiles(path string) ([]string, error) {
	fileList := make([]string, 0)

	err := afero.Walk(d.Fs, path, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if f.Mode().IsRegular() {
			fileList = append(fileList, path)
		}
		return nil
	})

	return fileList, err
}
