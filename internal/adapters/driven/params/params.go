// Package params reads retrieval parameters and check definitions from YAML.
package params

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/rules"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns the embedded parameters document.
func Default() (*domain.Parameters, error) {
	return Parse(defaultYAML)
}

// Load reads a parameters file. An empty path returns the embedded default.
func Load(path string) (*domain.Parameters, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameters: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a parameters document. Every tool under
// "tools" must carry topK and similarityThreshold, and the rule list must parse.
func Parse(data []byte) (*domain.Parameters, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parse parameters: %v", domain.ErrConfig, err)
	}
	p := domain.NewParameters(root)

	for _, name := range p.Keys("tools") {
		if _, err := p.ToolSettings(name, ""); err != nil {
			return nil, err
		}
	}
	if _, err := rules.FromParameters(p); err != nil {
		return nil, err
	}
	return p, nil
}
