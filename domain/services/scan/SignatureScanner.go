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
	"fmt"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/logging"
)

type SignatureScanner struct {
	engine out.AntivirusEngine
	logger logging.Logger
}

func NewSignatureScanner(engine out.AntivirusEngine, logger logging.Logger) *SignatureScanner {
	return &SignatureScanner{engine: engine, logger: logger}
}

func (s *SignatureScanner) ID() entities.ScannerID {
	return entities.SignatureScanner
}

func (s *SignatureScanner) Scan(ctx context.Context, target Target) (entities.EngineResult, error) {
	result := entities.NewEngineResult(s.ID())

	file, err := target.Open()
	if err != nil {
		return result, err
	}
	defer file.Close()

	report, err := s.engine.Scan(ctx, target.Job.FilePath, file)
	if err != nil {
		return result, fmt.Errorf("antivirus engine failed. err: %w", err)
	}

	if !report.Infected {
		return result, nil
	}

	threats := report.Threats
	if len(threats) == 0 {
		threats = []string{"unnamed threat"}
	}

	for _, threat := range threats {
		result.AddFinding(entities.Infected, entities.Finding{
			Type:     "signature_match",
			Message:  threat,
			Severity: entities.Critical,
			Details:  map[string]string{"threat": threat},
		})
	}

	result.Metadata["threats"] = len(threats)
	s.logger.Infow("Antivirus signature matched", "jobId", target.Job.ID, "threats", threats)

	return result, nil
}
