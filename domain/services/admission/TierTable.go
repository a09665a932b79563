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

package admission

import (
	"fmt"
	"sync/atomic"
	"tier-scanner/domain/entities"
)

// TierTable holds the tier policies. Lookups see either the old or the new
// table after a Replace, never a mix.
type TierTable struct {
	policies atomic.Pointer[map[string]entities.TierPolicy]
}

func NewTierTable(policies []entities.TierPolicy) (*TierTable, error) {
	table := &TierTable{}
	if err := table.Replace(policies); err != nil {
		return nil, err
	}

	return table, nil
}

func (t *TierTable) Replace(policies []entities.TierPolicy) error {
	if len(policies) == 0 {
		return fmt.Errorf("tier table needs at least one tier")
	}

	table := make(map[string]entities.TierPolicy, len(policies))
	for _, policy := range policies {
		if policy.Name == "" {
			return fmt.Errorf("tier without name")
		}

		if _, ok := table[policy.Name]; ok {
			return fmt.Errorf("duplicated tier %q", policy.Name)
		}

		seen := make(map[entities.ScannerID]bool, len(policy.AllowedScanners))
		for _, scanner := range policy.AllowedScanners {
			if !entities.IsKnownScanner(scanner) {
				return fmt.Errorf("tier %q references unknown scanner %q", policy.Name, scanner)
			}

			if seen[scanner] {
				return fmt.Errorf("tier %q lists scanner %q twice", policy.Name, scanner)
			}
			seen[scanner] = true
		}

		policy.AllowedScanners = policy.Scanners()
		table[policy.Name] = policy
	}

	t.policies.Store(&table)

	return nil
}

func (t *TierTable) Lookup(name string) (entities.TierPolicy, bool) {
	table := t.policies.Load()
	if table == nil {
		return entities.TierPolicy{}, false
	}

	policy, ok := (*table)[name]

	return policy, ok
}

func (t *TierTable) Names() []string {
	table := t.policies.Load()
	names := make([]string, 0, len(*table))
	for name := range *table {
		names = append(names, name)
	}

	return names
}
