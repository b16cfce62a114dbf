// Package profile holds the company profile: the sales context (industry,
// buyer role, deal sizing) that prompt builders and the deal engine receive
// as an explicit value rather than ambient state.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes the selling organization's target market.
type Profile struct {
	CompanyName      string  `yaml:"companyName"`
	ProductName      string  `yaml:"productName"`
	TargetIndustry   string  `yaml:"targetIndustry"`
	TargetRole       string  `yaml:"targetRole"`
	ValueProposition string  `yaml:"valueProposition"`
	DefaultDealValue float64 `yaml:"defaultDealValue"`
}

// Default returns the profile used when no override file is configured.
func Default() Profile {
	return Profile{
		CompanyName:      "SalesDesk",
		ProductName:      "SalesDesk CRM",
		TargetIndustry:   "B2B software",
		TargetRole:       "Head of Sales",
		ValueProposition: "an AI-assisted sales pipeline that keeps every lead warm",
		DefaultDealValue: 5000,
	}
}

// Load reads a profile from the given YAML file, falling back to Default()
// for the zero fields. An empty path returns Default() without touching disk.
func Load(path string) (Profile, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("profile: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("profile: parse %s: %w", path, err)
	}

	if p.DefaultDealValue < 0 {
		p.DefaultDealValue = Default().DefaultDealValue
	}

	return p, nil
}
