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
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"tier-scanner/domain/entities"
	"tier-scanner/logging"
	"time"

	"github.com/hillu/go-yara/v4"
)

const defaultRuleScanLimit = 4 * 1024 * 1024

//go:embed rules/reduced.yar
var reducedRules string

//go:embed rules/full.yar
var fullRules string

// RuleScanner matches yara rules against a bounded prefix of the file. The
// reduced preset holds the builtin reduced rules, the full preset adds the
// builtin full rules and every rule found in the rules directory.
type RuleScanner struct {
	presets   map[entities.RulePreset]*yara.Rules
	scanLimit int64
	logger    logging.Logger
}

func NewRuleScanner(rulesDir string, scanLimit int64, logger logging.Logger) (*RuleScanner, error) {
	if scanLimit <= 0 {
		scanLimit = defaultRuleScanLimit
	}

	ruleScanner := &RuleScanner{presets: make(map[entities.RulePreset]*yara.Rules), scanLimit: scanLimit, logger: logger}

	reduced, err := ruleScanner.compile([]string{reducedRules}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to compile reduced rules. err: %w", err)
	}

	full, err := ruleScanner.compile([]string{reducedRules, fullRules}, rulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to compile full rules. err: %w", err)
	}

	ruleScanner.presets[entities.ReducedRules] = reduced
	ruleScanner.presets[entities.FullRules] = full

	logger.Infow("Yara rules loaded", "reduced", len(reduced.GetRules()), "full", len(full.GetRules()))

	return ruleScanner, nil
}

func (r *RuleScanner) compile(sources []string, rulesDir string) (*yara.Rules, error) {
	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, errors.New("failed to initialize yara compiler")
	}
	defer compiler.Destroy()

	for _, source := range sources {
		if err := compiler.AddString(source, "builtin"); err != nil {
			return nil, err
		}
	}

	if rulesDir != "" {
		r.loadRules(rulesDir, compiler)
	}

	return compiler.GetRules()
}

func (r *RuleScanner) loadRules(rulesDir string, compiler *yara.Compiler) {
	err := filepath.Walk(rulesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			r.logger.Errorw("failed to parse directory", "error", err, "path", path)
			return nil
		}

		if info.Mode().IsRegular() {
			if err := r.loadSingleRule(rulesDir, path, compiler); err != nil {
				r.logger.Errorw("failed to load single rule", "error", err, "path", path)
			}
		}

		return nil
	})

	if err != nil {
		r.logger.Errorw("failed to load rules", "error", err)
	}
}

// loadSingleRule uses the first directory below rulesDir as namespace,
// rules/ransomware/ruleA.yar goes to namespace ransomware.
func (r *RuleScanner) loadSingleRule(rulesDir, path string, compiler *yara.Compiler) error {
	r.logger.Infow("Loading rule.", "rule", path)

	namespace := "rules"
	if rel, err := filepath.Rel(rulesDir, filepath.Dir(path)); err == nil && rel != "." {
		namespace = strings.Split(rel, string(filepath.Separator))[0]
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to load rule. err: %w", err)
	}
	defer f.Close()

	if err := compiler.AddFile(f, namespace); err != nil {
		return fmt.Errorf("failed to compile rule. err: %w", err)
	}

	return nil
}

func (r *RuleScanner) ID() entities.ScannerID {
	return entities.RuleScanner
}

func (r *RuleScanner) Scan(ctx context.Context, target Target) (entities.EngineResult, error) {
	result := entities.NewEngineResult(r.ID())

	preset := target.Job.RulePreset
	if preset == "" {
		preset = entities.ReducedRules
	}

	rules, ok := r.presets[preset]
	if !ok {
		return result, fmt.Errorf("unknown rule preset %q", preset)
	}

	file, err := target.Open()
	if err != nil {
		return result, err
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, r.scanLimit))
	if err != nil {
		return result, fmt.Errorf("failed reading file. err: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	timeout := time.Duration(0)
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout < time.Second {
			timeout = time.Second
		}
	}

	var matches yara.MatchRules
	if err := rules.ScanMem(content, 0, timeout, &matches); err != nil {
		return result, fmt.Errorf("yara scan failed. err: %w", err)
	}

	result.Metadata["preset"] = string(preset)
	result.Metadata["scannedBytes"] = len(content)
	result.Metadata["matches"] = len(matches)

	for _, match := range matches {
		result.AddFinding(entities.Suspicious, entities.Finding{
			Type:     "rule_match",
			Message:  describe(match),
			Severity: severityOf(match),
			Details:  map[string]string{"rule": match.Rule, "namespace": match.Namespace, "strings": strconv.Itoa(len(match.Strings))},
		})
	}

	return result, nil
}

func describe(match yara.MatchRule) string {
	for _, meta := range match.Metas {
		if meta.Identifier == "description" {
			if description, ok := meta.Value.(string); ok {
				return description
			}
		}
	}

	return "matched rule " + match.Rule
}

func severityOf(match yara.MatchRule) entities.Severity {
	for _, meta := range match.Metas {
		if meta.Identifier != "severity" {
			continue
		}

		value, _ := meta.Value.(string)
		switch entities.Severity(value) {
		case entities.Low, entities.Medium, entities.High, entities.Critical:
			return entities.Severity(value)
		}
	}

	return entities.Medium
}
