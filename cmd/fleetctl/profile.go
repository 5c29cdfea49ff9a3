package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultBaseURL = "http://localhost:8080"

// profile is the on-disk CLI configuration.
type profile struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

func defaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fleetctl.yaml"
	}
	return filepath.Join(home, ".config", "fleetctl", "profile.yaml")
}

// loadProfile reads path when it exists, then applies FLEETCTL_* env
// overrides. A missing file is not an error.
func loadProfile(path string) (profile, error) {
	p := profile{BaseURL: defaultBaseURL, Timeout: 60 * time.Second}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &p); err != nil {
				return profile{}, fmt.Errorf("parse profile %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return profile{}, fmt.Errorf("read profile: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("FLEETCTL_BASE_URL")); v != "" {
		p.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FLEETCTL_TOKEN")); v != "" {
		p.Token = v
	}
	if p.Timeout <= 0 {
		p.Timeout = 60 * time.Second
	}
	return p, nil
}
