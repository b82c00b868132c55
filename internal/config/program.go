package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProgramSeed is the YAML shape of LOYALTY_PROGRAM_FILE.
type ProgramSeed struct {
	Name                  string     `yaml:"name"`
	PointsPerDollar       string     `yaml:"points_per_dollar"`
	PointsForRegistration int64      `yaml:"points_for_registration"`
	PointsForReview       int64      `yaml:"points_for_review"`
	PointsForReferral     int64      `yaml:"points_for_referral"`
	ExpiryMonths          int        `yaml:"expiry_months"`
	Tiers                 []TierSeed `yaml:"tiers"`
}

// TierSeed describes one tier in the seed file.
type TierSeed struct {
	Name      string   `yaml:"name"`
	MinPoints int64    `yaml:"min_points"`
	Benefits  []string `yaml:"benefits"`
}

// LoadProgramSeed reads a loyalty program definition from a YAML file.
func LoadProgramSeed(path string) (*ProgramSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program seed %s: %w", path, err)
	}

	var seed ProgramSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing program seed %s: %w", path, err)
	}
	if seed.Name == "" {
		seed.Name = "Default"
	}
	if seed.PointsPerDollar == "" {
		seed.PointsPerDollar = "0"
	}
	return &seed, nil
}
