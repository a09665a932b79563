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

package fileutils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

type Filetype int8

const (
	Uncompressed Filetype = iota + 1
	Executable
	Compressed
	Multimedia
)

func (f Filetype) String() string {
	switch f {
	case Executable:
		return "executable"
	case Compressed:
		return "compressed"
	case Multimedia:
		return "multimedia"
	default:
		return "uncompressed"
	}
}

const MaxHeaderBuffer = 1024
const mimeApplicationType = "application"

var ErrCantReadHeader = errors.New("cant read file header")

//nolint:gochecknoglobals
var once sync.Once

// magicByExtension maps a lower case extension to the prefixes accepted for it.
//
//nolint:gochecknoglobals
var magicByExtension = map[string][][]byte{
	"pdf":  {[]byte("%PDF")},
	"png":  {{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}},
	"jpg":  {{0xff, 0xd8, 0xff}},
	"jpeg": {{0xff, 0xd8, 0xff}},
	"gif":  {[]byte("GIF87a"), []byte("GIF89a")},
	"zip":  {{0x50, 0x4b, 0x03, 0x04}, {0x50, 0x4b, 0x05, 0x06}},
	"docx": {{0x50, 0x4b, 0x03, 0x04}},
	"xlsx": {{0x50, 0x4b, 0x03, 0x04}},
	"pptx": {{0x50, 0x4b, 0x03, 0x04}},
	"exe":  {[]byte("MZ")},
	"dll":  {[]byte("MZ")},
	"gz":   {{0x1f, 0x8b}},
	"bmp":  {[]byte("BM")},
}

func prefix(preffix []byte) func([]byte, uint32) bool {
	return func(raw []byte, limit uint32) bool {
		if limit < uint32(len(preffix)) {
			return false
		}

		return bytes.Equal(raw[:len(preffix)], preffix)
	}
}

func registerAdditionalTypes() {
	// Support for Eicar
	mimetype.Extend(prefix([]byte{0x58, 0x35, 0x4f, 0x21}), "application/x-eicar", "")
}

func ReadHeader(reader io.Reader) ([]byte, error) {
	head := make([]byte, MaxHeaderBuffer)
	n, err := io.ReadFull(reader, head)

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", ErrCantReadHeader, err)
	}

	return head[:n], nil
}

// Detect returns the mimetype and the category of a file header.
func Detect(head []byte) (string, Filetype) {
	once.Do(registerAdditionalTypes)

	mtype := mimetype.Detect(head)
	identifiedType := strings.Split(strings.Split(mtype.String(), ";")[0], "/")

	switch {
	case isMultimedia(identifiedType):
		return mtype.String(), Multimedia
	case isCompressed(identifiedType):
		return mtype.String(), Compressed
	case isBinaryApp(identifiedType):
		return mtype.String(), Executable
	default:
		return mtype.String(), Uncompressed
	}
}

func GetType(reader io.Reader) (Filetype, error) {
	head, err := ReadHeader(reader)
	if err != nil {
		return 0, err
	}

	_, filetype := Detect(head)

	return filetype, nil
}

// MatchesExtension reports whether head starts with a magic number accepted
// for the extension of filename. known is false for extensions without an entry.
func MatchesExtension(filename string, head []byte) (matches bool, known bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	magics, ok := magicByExtension[ext]
	if !ok {
		return false, false
	}

	for _, magic := range magics {
		if bytes.HasPrefix(head, magic) {
			return true, true
		}
	}

	return false, true
}

func isCompressed(identifiedType []string) bool {
	return len(identifiedType) == 2 && identifiedType[0] == mimeApplicationType &&
		(identifiedType[1] == "zip" || identifiedType[1] == "x-tar" || identifiedType[1] == "gzip" || identifiedType[1] == "x-7z-compressed" || identifiedType[1] == "x-rar-compressed")
}

func isBinaryApp(identifiedType []string) bool {
	return len(identifiedType) == 2 && identifiedType[0] == mimeApplicationType &&
		(identifiedType[1] == "x-elf" ||
			identifiedType[1] == "vnd.microsoft.portable-executable" ||
			identifiedType[1] == "x-executable" ||
			identifiedType[1] == "x-sharedlib" ||
			identifiedType[1] == "x-mach-binary" ||
			identifiedType[1] == "x-msdownload" ||
			identifiedType[1] == "x-eicar")
}

func isMultimedia(identifiedType []string) bool {
	return identifiedType[0] == "audio" ||
		identifiedType[0] == "video" ||
		identifiedType[0] == "image"
}

func IsExecutable(reader io.Reader) bool {
	format, err := GetType(reader)
	return err == nil && format == Executable
}
