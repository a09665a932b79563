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

import "tier-scanner/domain/entities"

type ScanResponse struct {
	Result *entities.AggregatedResult `json:"result,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

type HistoryResponse struct {
	FileID  string                      `json:"fileId"`
	Results []entities.AggregatedResult `json:"results"`
	Error   string                      `json:"error,omitempty"`
}

type QueueResponse struct {
	entities.QueueCounts
	Error string `json:"error,omitempty"`
}
