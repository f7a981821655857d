package explain

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Importance is one row of the feature importance table quoted in prompts.
type Importance struct {
	Feature    string  `yaml:"feature"`
	Importance float64 `yaml:"importance"`
}

// ImportanceFile is the YAML root structure.
type ImportanceFile struct {
	Importances []Importance `yaml:"importances"`
}

// DefaultImportances is the reference table of the trained gradient boosting model.
func DefaultImportances() []Importance {
	return []Importance{
		{"NumOfProducts", 0.323888},
		{"IsActiveMember", 0.164146},
		{"Age", 0.109550},
		{"Geography_Germany", 0.091373},
		{"Balance", 0.052786},
		{"Geography_France", 0.046463},
		{"Gender_Female", 0.045283},
		{"Geography_Spain", 0.036855},
		{"CreditScore", 0.035005},
		{"EstimatedSalary", 0.032655},
		{"HasCrCard", 0.031940},
		{"Tenure", 0.030054},
		{"Gender_Male", 0},
	}
}

// LoadImportances reads an importance table from path. An empty path or a
// missing file yields the default table.
func LoadImportances(path string, logger *slog.Logger) ([]Importance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return DefaultImportances(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("importance file not found, using defaults", "path", path)
			return DefaultImportances(), nil
		}
		return nil, err
	}
	var file ImportanceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse importances %s: %w", path, err)
	}
	if len(file.Importances) == 0 {
		return nil, fmt.Errorf("importances %s: table is empty", path)
	}
	seen := make(map[string]struct{}, len(file.Importances))
	for _, imp := range file.Importances {
		if imp.Feature == "" {
			return nil, fmt.Errorf("importances %s: row without a feature name", path)
		}
		if _, dup := seen[imp.Feature]; dup {
			return nil, fmt.Errorf("importances %s: feature %q listed twice", path, imp.Feature)
		}
		seen[imp.Feature] = struct{}{}
	}
	return file.Importances, nil
}

// topImportances returns the n heaviest rows, heaviest first. n <= 0 keeps all.
func topImportances(rows []Importance, n int) []Importance {
	sorted := append([]Importance(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Importance > sorted[j].Importance })
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
