// Package persona loads narrator persona definitions from a JSON file. A
// persona supplies the system prompt and sampling temperature used for story
// generation.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Persona is one narrator voice.
type Persona struct {
	Name         string  `json:"name"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float32 `json:"temperature"`
}

// Set is a named collection of personas.
type Set struct {
	personas map[string]Persona
}

// Load reads personas from a JSON file holding an array of persona objects.
// An empty path yields an empty set, so personas stay optional.
func Load(path string) (*Set, error) {
	set := &Set{personas: make(map[string]Persona)}
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read personas file: %w", err)
	}

	var personas []Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("failed to parse personas file: %w", err)
	}

	for _, p := range personas {
		if p.Name == "" {
			return nil, fmt.Errorf("persona without a name in %s", path)
		}
		set.personas[p.Name] = p
	}
	return set, nil
}

// Get returns a persona by name.
func (s *Set) Get(name string) (Persona, bool) {
	p, ok := s.personas[name]
	return p, ok
}

// Names returns all persona names sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.personas))
	for name := range s.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
