// Package resume loads the résumé page content from YAML.
package resume

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

type Period struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type School struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Experience struct {
	Employer string `yaml:"employer"`
	Title    string `yaml:"title"`
	Period   Period `yaml:"period"`
}

type Study struct {
	School School `yaml:"school"`
	Title  string `yaml:"title"`
	Period Period `yaml:"period"`
}

type Resume struct {
	Experience []Experience `yaml:"experience"`
	Education  []Study      `yaml:"education"`
}

// Load reads path. A missing file yields an empty résumé.
func Load(path string) (*Resume, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Resume{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading resume: %w", err)
	}
	var r Resume
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing resume %s: %w", path, err)
	}
	return &r, nil
}
