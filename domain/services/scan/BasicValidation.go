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

package scan

import (
	"context"
	"crypto/md5" //nolint:gosec
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"
	"tier-scanner/domain/entities"
	"tier-scanner/fileutils"
	"tier-scanner/logging"
)

type BasicValidation struct {
	logger logging.Logger
}

func NewBasicValidation(logger logging.Logger) *BasicValidation {
	return &BasicValidation{logger: logger}
}

func (b *BasicValidation) ID() entities.ScannerID {
	return entities.BasicValidation
}

func (b *BasicValidation) Scan(ctx context.Context, target Target) (entities.EngineResult, error) {
	result := entities.NewEngineResult(b.ID())

	hasher, algorithm, supported := hasherFor(target.Job.FileHash)

	file, err := target.Open()
	if err != nil {
		return result, err
	}
	defer file.Close()

	head, err := fileutils.ReadHeader(io.TeeReader(file, hasher))
	if err != nil {
		return result, err
	}

	read, err := copyWithContext(ctx, hasher, file)
	if err != nil {
		return result, fmt.Errorf("failed to hash file. err: %w", err)
	}
	size := int64(len(head)) + read

	computed := hex.EncodeToString(hasher.Sum(nil))
	mime, filetype := fileutils.Detect(head)
	result.Metadata["algorithm"] = algorithm
	result.Metadata["computedHash"] = computed
	result.Metadata["mimetype"] = mime
	result.Metadata["fileType"] = filetype.String()

	switch {
	case !supported:
		result.AddFinding(entities.Suspicious, entities.Finding{
			Type:     "hash_mismatch",
			Message:  "declared hash is not an md5, sha1 or sha256 digest",
			Severity: entities.High,
			Details:  map[string]string{"expected": target.Job.FileHash, "computed": computed, "algorithm": algorithm},
		})
	case !strings.EqualFold(computed, target.Job.FileHash):
		result.AddFinding(entities.Suspicious, entities.Finding{
			Type:     "hash_mismatch",
			Message:  "file content does not match the declared hash",
			Severity: entities.High,
			Details:  map[string]string{"expected": strings.ToLower(target.Job.FileHash), "computed": computed, "algorithm": algorithm},
		})
	}

	if size != target.Job.FileSizeBytes {
		result.AddFinding(entities.Suspicious, entities.Finding{
			Type:     "size_mismatch",
			Message:  "file size does not match the declared size",
			Severity: entities.High,
			Details:  map[string]string{"expected": strconv.FormatInt(target.Job.FileSizeBytes, 10), "actual": strconv.FormatInt(size, 10)},
		})
	}

	name := target.Job.FileName
	if name == "" {
		name = target.Job.FilePath
	}

	if matches, known := fileutils.MatchesExtension(name, head); known && !matches {
		result.AddFinding(entities.Suspicious, entities.Finding{
			Type:     "file_type_mismatch",
			Message:  "file content does not match its extension",
			Severity: entities.Medium,
			Details:  map[string]string{"fileName": name, "detected": mime},
		})
	}

	return result, nil
}

// hasherFor picks the algorithm from the digest length. Unknown lengths
// fall back to sha256 so the content is still hashed and typed.
func hasherFor(fileHash string) (hash.Hash, string, bool) {
	switch len(fileHash) {
	case md5.Size * 2:
		return md5.New(), "md5", true //nolint:gosec
	case sha1.Size * 2:
		return sha1.New(), "sha1", true //nolint:gosec
	case sha256.Size * 2:
		return sha256.New(), "sha256", true
	default:
		return sha256.New(), "sha256", false
	}
}

// copyWithContext copies in chunks so a cancelled scan stops reading.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buffer := make([]byte, scanBufferSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := src.Read(buffer)
		if n > 0 {
			if _, werr := dst.Write(buffer[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}

		if err == io.EOF {
			return total, nil
		}

		if err != nil {
			return total, err
		}
	}
}
