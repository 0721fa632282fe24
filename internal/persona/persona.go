// Package persona holds the fixed model configuration the relay runs with:
// system instruction, sampling parameters and safety thresholds.
package persona

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPersona []byte

const (
	CategoryHateSpeech       = "hate_speech"
	CategoryDangerousContent = "dangerous_content"
	CategorySexuallyExplicit = "sexually_explicit"
	CategoryHarassment       = "harassment"
)

const (
	BlockLowAndAbove    = "block_low_and_above"
	BlockMediumAndAbove = "block_medium_and_above"
	BlockOnlyHigh       = "block_only_high"
	BlockNone           = "block_none"
)

var (
	knownCategories = map[string]bool{
		CategoryHateSpeech:       true,
		CategoryDangerousContent: true,
		CategorySexuallyExplicit: true,
		CategoryHarassment:       true,
	}
	knownThresholds = map[string]bool{
		BlockLowAndAbove:    true,
		BlockMediumAndAbove: true,
		BlockOnlyHigh:       true,
		BlockNone:           true,
	}
)

type SafetyRule struct {
	Category  string `yaml:"category"`
	Threshold string `yaml:"threshold"`
}

// Persona is immutable once loaded; providers copy what they need from it.
type Persona struct {
	Name              string       `yaml:"name"`
	SystemInstruction string       `yaml:"system_instruction"`
	MaxOutputTokens   int32        `yaml:"max_output_tokens"`
	Temperature       float32      `yaml:"temperature"`
	TopP              float32      `yaml:"top_p"`
	Safety            []SafetyRule `yaml:"safety"`
}

// Default returns the embedded support persona.
func Default() (*Persona, error) {
	return Parse(defaultPersona)
}

// Load reads a persona from path, or returns the default when path is empty.
func Load(path string) (*Persona, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("persona %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a YAML persona document.
func Parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}
	for i := range p.Safety {
		p.Safety[i].Category = strings.ToLower(strings.TrimSpace(p.Safety[i].Category))
		p.Safety[i].Threshold = strings.ToLower(strings.TrimSpace(p.Safety[i].Threshold))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Persona) Validate() error {
	if strings.TrimSpace(p.SystemInstruction) == "" {
		return fmt.Errorf("system_instruction is required")
	}
	if p.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be positive, got %d", p.MaxOutputTokens)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", p.Temperature)
	}
	if p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("top_p must be within (0, 1], got %v", p.TopP)
	}
	seen := make(map[string]bool, len(p.Safety))
	for _, rule := range p.Safety {
		if !knownCategories[rule.Category] {
			return fmt.Errorf("unknown safety category %q", rule.Category)
		}
		if !knownThresholds[rule.Threshold] {
			return fmt.Errorf("unknown safety threshold %q for %s", rule.Threshold, rule.Category)
		}
		if seen[rule.Category] {
			return fmt.Errorf("duplicate safety category %q", rule.Category)
		}
		seen[rule.Category] = true
	}
	return nil
}
