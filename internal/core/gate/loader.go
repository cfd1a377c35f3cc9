// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kusari-oss/stitch/internal/core/format"
)

// ruleFile is the on-disk shape of a rules document.
type ruleFile struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// LoadRulesDir reads every .yaml rules file in dir. A missing directory is
// not an error; runs simply proceed without extra rules.
func LoadRulesDir(dir string) ([]Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading rules directory: %w", err)
	}

	var rules []Rule
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		var file ruleFile
		if err := format.ParseFile(path, &file); err != nil {
			return nil, fmt.Errorf("error parsing rules file %s: %w", path, err)
		}

		rules = append(rules, file.Rules...)
	}

	return rules, nil
}
