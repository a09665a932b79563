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
	"bytes"
	"fmt"
	"io"
	"testing"
	"tier-scanner/domain/ports/out"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noLimit(string, int64) error { return nil }

func storages(t *testing.T) []struct {
	storageType string
	storage     out.LocalStorage
} {
	t.Helper()

	memStorage, err := NewLocalStorageFS(afero.NewMemMapFs(), noLimit)
	require.NoError(t, err)

	diskStorage, err := NewLocalStorageFS(afero.NewOsFs(), noLimit)
	require.NoError(t, err)
	t.Cleanup(func() { _ = diskStorage.Destroy() })

	return []struct {
		storageType string
		storage     out.LocalStorage
	}{
		{storageType: "memory", storage: memStorage},
		{storageType: "disk", storage: diskStorage},
	}
}

func TestDestroyMemStorage(t *testing.T) {
	localStorageFactory := NewLocalStorageFactory(1 * 1024 * 1024)

	memStorage, err := localStorageFactory.GetLocalStorage(1024)
	assert.NoError(t, err)

	_, err = localStorageFactory.GetStorageFromID(memStorage.GetID())
	assert.NoError(t, err)

	err = localStorageFactory.DestroyStorage(memStorage.GetID())
	assert.NoError(t, err)

	_, err = localStorageFactory.GetStorageFromID(memStorage.GetID())
	assert.Error(t, err)
}

func TestDestroyDiskStorage(t *testing.T) {
	localStorageFactory := NewLocalStorageFactory(5 * 1024 * 1024)

	diskStorage, err := localStorageFactory.GetLocalStorage(EnforceDiskSize)
	assert.NoError(t, err)

	file, err := diskStorage.Create("payload")
	require.NoError(t, err)
	_, err = file.Write(make([]byte, 2048))
	require.NoError(t, err)
	file.Close()
	assert.Equal(t, int64(2048), localStorageFactory.Usage())

	err = localStorageFactory.DestroyStorage(diskStorage.GetID())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), localStorageFactory.Usage())

	_, err = localStorageFactory.GetStorageFromID(diskStorage.GetID())
	assert.Error(t, err)

	err = localStorageFactory.DestroyStorage(diskStorage.GetID())
	assert.Error(t, err)
}

func TestStorageLimit(t *testing.T) {
	localStorageFactory := NewLocalStorageFactory(1024)

	storage, err := localStorageFactory.GetLocalStorage(0)
	require.NoError(t, err)

	file, err := storage.Create("big")
	require.NoError(t, err)
	defer file.Close()

	_, err = file.Write(make([]byte, 1000))
	require.NoError(t, err)

	_, err = file.Write(make([]byte, 100))
	assert.ErrorIs(t, err, ErrStorageLimit)
}

func TestReadWriteFile(t *testing.T) {
	for _, v := range storages(t) {
		v := v
		t.Run(fmt.Sprintf("readwrite_%s", v.storageType), func(t *testing.T) {
			file, err := v.storage.Create("dir/testfile")
			assert.NoError(t, err)

			expectedContext := "content"
			_, err = file.WriteString(expectedContext)
			assert.NoError(t, err)
			file.Close()

			file, err = v.storage.Open("dir/testfile")
			assert.NoError(t, err)
			defer file.Close()

			b := bytes.Buffer{}
			_, err = io.Copy(&b, file)
			assert.NoError(t, err)
			assert.Equal(t, []byte(expectedContext), b.Bytes())

			size, err := v.storage.Size("dir/testfile")
			assert.NoError(t, err)
			assert.Equal(t, int64(len(expectedContext)), size)
		})
	}
}

func TestFileExists(t *testing.T) {
	for _, v := range storages(t) {
		v := v
		t.Run(fmt.Sprintf("fileexist_%s", v.storageType), func(t *testing.T) {
			file, err := v.storage.Create("existfile")
			assert.NoError(t, err)
			file.Close()

			exists, err := v.storage.Exists("existfile")
			assert.True(t, exists)
			assert.NoError(t, err)

			exists, err = v.storage.Exists("notexist")
			assert.False(t, exists)
			assert.NoError(t, err)
		})
	}
}

func TestDeleteFile(t *testing.T) {
	for _, v := range storages(t) {
		v := v
		t.Run(fmt.Sprintf("delete_%s", v.storageType), func(t *testing.T) {
			file, err := v.storage.Create("existfile")
			assert.NoError(t, err)
			file.Close()

			err = v.storage.Remove("existfile")
			assert.NoError(t, err)

			exists, err := v.storage.Exists("existfile")
			assert.False(t, exists)
			assert.NoError(t, err)
		})
	}
}

func TestListFiles(t *testing.T) {
	memStorage, err := NewLocalStorageFS(afero.NewMemMapFs(), noLimit)
	require.NoError(t, err)

	filenames := []string{"fileInRoot", "/folder1/file1", "/folder1/file2", "/folder2/file2", "/folder2/folder3/file"}
	for _, filename := range filenames {
		file, err := memStorage.Create(filename)
		require.NoError(t, err)
		file.Close()
	}

	actualFilenames, err := memStorage.ListFiles("")
	assert.NoError(t, err)
	assert.Equal(t, len(filenames), len(actualFilenames))
}
