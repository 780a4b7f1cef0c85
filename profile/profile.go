package profile

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

// Suffix is the filename suffix identifying a profile file.
const Suffix = ".profile"

// Profile is a named bundle of events to enable, parsed from a profile file.
//
// The Kernel, UST, and Preload lists are never nil after parsing; absent
// keys normalize to empty lists.
type Profile struct {
	Name     string   `yaml:"-"`
	Desc     string   `yaml:"desc"`
	Kernel   []string `yaml:"kernel"`
	UST      []string `yaml:"ust"`
	Preload  []string `yaml:"preload"`
	Includes []string `yaml:"includes"`

	// Source is the file the profile was loaded from.
	Source string `yaml:"-"`
}

// parse decodes a single profile description.
func parse(data []byte) (*Profile, error) {
	var p Profile

	err := yaml.Unmarshal(data, &p)
	if err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}

	if p.Kernel == nil {
		p.Kernel = []string{}
	}

	if p.UST == nil {
		p.UST = []string{}
	}

	if p.Preload == nil {
		p.Preload = []string{}
	}

	return &p, nil
}

// isEmpty reports whether the profile carries no content at all, as parsed
// from an empty or comment-only file.
func (p *Profile) isEmpty() bool {
	return p.Desc == "" &&
		len(p.Kernel) == 0 &&
		len(p.UST) == 0 &&
		len(p.Preload) == 0 &&
		len(p.Includes) == 0
}
