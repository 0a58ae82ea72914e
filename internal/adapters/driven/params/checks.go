package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/rules"
)

type checkFile struct {
	Checks []checkEntry `yaml:"checks"`
}

type checkEntry struct {
	ID       string           `yaml:"id"`
	Category string           `yaml:"category"`
	Question string           `yaml:"question"`
	Answer   string           `yaml:"answer"`
	Expect   []map[string]any `yaml:"expect"`
}

// LoadChecks reads check definitions from a YAML file.
func LoadChecks(path string) ([]domain.CheckDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checks: %w", err)
	}
	return ParseChecks(data)
}

// ParseChecks decodes check definitions:
//
//	checks:
//	  - category: views
//	    question: How do I open a dialog?
//	    answer: Use the DialogWindows bean.
//	    expect:
//	      - contains: {field: answer, value: DialogWindows}
//
// Checks without an id are numbered from 1. Expectations are validated eagerly.
func ParseChecks(data []byte) ([]domain.CheckDef, error) {
	var f checkFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse checks: %v", domain.ErrConfig, err)
	}

	out := make([]domain.CheckDef, 0, len(f.Checks))
	for i, c := range f.Checks {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		if c.Question == "" {
			return nil, fmt.Errorf("%w: check %s has no question", domain.ErrConfig, id)
		}
		if _, err := rules.ParseExpectations(c.Expect); err != nil {
			return nil, fmt.Errorf("check %s: %w", id, err)
		}
		out = append(out, domain.CheckDef{
			ID:              id,
			Category:        c.Category,
			Question:        c.Question,
			ReferenceAnswer: c.Answer,
			Expect:          c.Expect,
		})
	}
	return out, nil
}
