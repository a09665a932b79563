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

// VTFileReport is the subset of the VirusTotal v3 file object we read.
type VTFileReport struct {
	Data VTData `json:"data"`
}

type VTData struct {
	Attributes VTAttributes `json:"attributes"`
	ID         string       `json:"id"`
}

type VTAttributes struct {
	LastAnalysisStats VTAnalysisStats `json:"last_analysis_stats"`
	SHA256            string          `json:"sha256"`
}

type VTAnalysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Harmless   int `json:"harmless"`
}

// Engines counts the engines that gave a verdict on the file.
func (s VTAnalysisStats) Engines() int {
	return s.Malicious + s.Suspicious + s.Undetected + s.Harmless
}
