// Package prompts loads the LLM prompt configurations shipped with the
// binary. Each pipeline stage owns one YAML file carrying its model,
// temperature and prompt templates, so prompt tuning never requires a code
// change.
package prompts

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed files/*.yaml
var files embed.FS

// Config is the parsed form of one prompt YAML file. Fields not used by a
// given stage stay zero-valued.
type Config struct {
	Model              string  `yaml:"model"`
	Temperature        float32 `yaml:"temperature"`
	SystemMessage      string  `yaml:"system_message"`
	UserPromptTemplate string  `yaml:"user_prompt_template"`
	FewShotExamples    string  `yaml:"few_shot_examples"`
	TextPrompt         string  `yaml:"text_prompt"` // vision OCR instruction
	MaxTokens          int     `yaml:"max_tokens"`
}

// Load reads and parses a prompt file by name (e.g. "extraction.yaml").
func Load(name string) (*Config, error) {
	raw, err := files.ReadFile("files/" + name)
	if err != nil {
		return nil, fmt.Errorf("prompt file not found: %s", name)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse prompt file %s: %w", name, err)
	}
	return &cfg, nil
}

// MustLoad is Load for process-start wiring, where a missing prompt file is
// a packaging bug.
func MustLoad(name string) *Config {
	cfg, err := Load(name)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Format substitutes {placeholder} variables in a prompt template.
// Placeholders without a provided value are left untouched.
func Format(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
