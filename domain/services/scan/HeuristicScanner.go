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
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strconv"
	"tier-scanner/domain/entities"
	"tier-scanner/logging"
)

const (
	entropyThreshold     = 7.5
	EmbeddedHeaderOffset = 1024
	rangeOfByteValue     = 256
)

//nolint:gochecknoglobals
var executableHeaders = [][]byte{
	[]byte("\x7fELF"),
	[]byte("MZ\x90\x00"),
}

type HeuristicScanner struct {
	logger logging.Logger
}

func NewHeuristicScanner(logger logging.Logger) *HeuristicScanner {
	return &HeuristicScanner{logger: logger}
}

func (h *HeuristicScanner) ID() entities.ScannerID {
	return entities.HeuristicScanner
}

func (h *HeuristicScanner) Scan(ctx context.Context, target Target) (entities.EngineResult, error) {
	result := entities.NewEngineResult(h.ID())

	file, err := target.Open()
	if err != nil {
		return result, err
	}
	defer file.Close()

	byteCounts := make([]int64, rangeOfByteValue)
	buffer := make([]byte, scanBufferSize)
	overlap := longestHeader() - 1
	var tail []byte
	var size int64
	embeddedAt := int64(-1)

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		numBytesRead, err := file.Read(buffer)
		chunk := buffer[:numBytesRead]
		for _, b := range chunk {
			byteCounts[b]++
		}

		if embeddedAt < 0 && numBytesRead > 0 {
			// tail keeps the end of the previous chunk so headers split across reads are found.
			window := append(tail, chunk...)
			windowStart := size - int64(len(tail))
			embeddedAt = findHeader(window, windowStart)

			if len(window) > overlap {
				tail = append([]byte{}, window[len(window)-overlap:]...)
			} else {
				tail = append([]byte{}, window...)
			}
		}

		size += int64(numBytesRead)

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			h.logger.Errorw("failed to read file during entropy calculation", "error", err, "jobId", target.Job.ID)
			return result, err
		}
	}

	entropy := shannon(byteCounts, size)
	result.Metadata["entropy"] = math.Round(entropy*1000) / 1000
	result.Metadata["size"] = size

	if entropy > entropyThreshold {
		result.AddFinding(entities.Suspicious, entities.Finding{
			Type:     "high_entropy",
			Message:  "file content looks packed or encrypted",
			Severity: entities.Medium,
			Details:  map[string]string{"entropy": strconv.FormatFloat(entropy, 'f', 3, 64)},
		})
	}

	if embeddedAt >= 0 {
		result.AddFinding(entities.Suspicious, entities.Finding{
			Type:     "embedded_executable",
			Message:  "executable header found inside the file",
			Severity: entities.High,
			Details:  map[string]string{"offset": strconv.FormatInt(embeddedAt, 10)},
		})
	}

	return result, nil
}

// shannon returns the entropy in bits per byte, 0 for empty input.
func shannon(byteCounts []int64, size int64) float64 {
	if size == 0 {
		return 0
	}

	entropy := 0.0
	for i := 0; i < rangeOfByteValue; i++ {
		px := float64(byteCounts[i]) / float64(size)
		if px > 0 {
			entropy += -px * math.Log2(px)
		}
	}

	return entropy
}

// findHeader returns the absolute offset of the first executable header found
// at or beyond EmbeddedHeaderOffset, or -1.
func findHeader(window []byte, windowStart int64) int64 {
	found := int64(-1)

	for _, header := range executableHeaders {
		from := 0
		for from < len(window) {
			idx := bytes.Index(window[from:], header)
			if idx < 0 {
				break
			}

			offset := windowStart + int64(from+idx)
			if offset >= EmbeddedHeaderOffset {
				if found < 0 || offset < found {
					found = offset
				}
				break
			}
			from += idx + 1
		}
	}

	return found
}

func longestHeader() int {
	longest := 0
	for _, header := range executableHeaders {
		if len(header) > longest {
			longest = len(header)
		}
	}

	return longest
}
