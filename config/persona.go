package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona describes the agent identity as read from a YAML config file.
// The instruction itself lives in a separate markdown file next to the
// config, referenced by prompt_file.
type Persona struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Model       string `yaml:"model"`
	PromptFile  string `yaml:"prompt_file"`

	Instruction string `yaml:"-"`
}

type personaFile struct {
	Agent Persona `yaml:"agent"`
}

// DefaultPersona is used when no config path is given. The zero Model
// and Instruction let each backend fall back to its own defaults.
func DefaultPersona() Persona {
	return Persona{
		Name:        "StudyBuddy",
		Description: "Your AI Learning Companion",
	}
}

// LoadPersona reads the agent YAML config and the prompt file it points
// at. An empty path returns the default persona.
func LoadPersona(path string) (Persona, error) {
	if path == "" {
		return DefaultPersona(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("failed to read agent config %s: %w", path, err)
	}

	var file personaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Persona{}, fmt.Errorf("failed to parse agent config %s: %w", path, err)
	}

	persona := file.Agent
	if persona.Name == "" {
		persona.Name = DefaultPersona().Name
	}
	if persona.Description == "" {
		persona.Description = DefaultPersona().Description
	}

	if persona.PromptFile != "" {
		promptPath := persona.PromptFile
		if !filepath.IsAbs(promptPath) {
			promptPath = filepath.Join(filepath.Dir(path), promptPath)
		}
		prompt, err := os.ReadFile(promptPath)
		if err != nil {
			return Persona{}, fmt.Errorf("failed to read prompt file %s: %w", promptPath, err)
		}
		persona.Instruction = strings.TrimSpace(string(prompt))
	}

	return persona, nil
}
