// Package profile loads the bot's constructor configuration: display name,
// purpose, the static user profile and the declared tools.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dotsetgreg/wanderbot/pkg/tools"
)

//go:embed default_profile.yaml
var defaultProfileYAML []byte

var ErrInvalidProfile = errors.New("invalid bot profile")

type Profile struct {
	Name        string                 `yaml:"name"`
	Purpose     string                 `yaml:"purpose"`
	UserProfile map[string]interface{} `yaml:"user_profile"`
	Tools       []tools.ToolSpec       `yaml:"tools"`
}

// Default returns the built-in WanderBot profile.
func Default() *Profile {
	p, err := Parse(defaultProfileYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default profile: %v", err))
	}
	return p
}

// DefaultYAML returns the embedded profile source, used when writing a
// starter profile to disk.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultProfileYAML))
	copy(out, defaultProfileYAML)
	return out
}

// Load reads a YAML profile; an empty path yields Default().
func Load(path string) (*Profile, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.UserProfile == nil {
		p.UserProfile = map[string]interface{}{}
	}
	return &p, nil
}

func (p *Profile) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(p.Purpose) == "" {
		problems = append(problems, "purpose is required")
	}
	seen := make(map[string]bool, len(p.Tools))
	for i, t := range p.Tools {
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("tools[%d].name is required", i))
		case seen[name]:
			problems = append(problems, fmt.Sprintf("tools[%d].name %q is duplicated", i, name))
		}
		seen[name] = true
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(problems, "; "))
	}
	return nil
}
