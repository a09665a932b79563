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

package entities

// ScannerID names a detection engine. Values are stable, they get persisted
// with every job and result.
type ScannerID string

const (
	BasicValidation   ScannerID = "basicValidation"
	SignatureScanner  ScannerID = "signatureScanner"
	RuleScanner       ScannerID = "ruleScanner"
	ReputationScanner ScannerID = "reputationScanner"
	HeuristicScanner  ScannerID = "heuristicScanner"
)

func KnownScanners() []ScannerID {
	return []ScannerID{BasicValidation, SignatureScanner, RuleScanner, ReputationScanner, HeuristicScanner}
}

func IsKnownScanner(id ScannerID) bool {
	for _, known := range KnownScanners() {
		if known == id {
			return true
		}
	}

	return false
}

type RulePreset string

const (
	ReducedRules RulePreset = "reduced"
	FullRules    RulePreset = "full"
)

type TierPolicy struct {
	Name             string
	AllowedScanners  []ScannerID
	MaxFileSizeBytes int64
	MaxJobsPerDay    int
	BasePriority     int
	RulePreset       RulePreset
}

// Scanners returns a copy, so a job never shares its scanner list with the table.
func (t TierPolicy) Scanners() []ScannerID {
	scanners := make([]ScannerID, len(t.AllowedScanners))
	copy(scanners, t.AllowedScanners)

	return scanners
}
