// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package npm

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v3"
)

// ConfigName is the optional per-project configuration file.
const ConfigName = "NpmConfig.yaml"

// Config carries the recognized install options. It is constructed
// explicitly and handed through the driver; nothing reads it from a
// global.
type Config struct {
	Global     bool `yaml:"global"`
	Dev        bool `yaml:"dev"`
	Production bool `yaml:"production"`
	Unicode    bool `yaml:"unicode"`
	Npat       bool `yaml:"npat"`

	Registry    string `yaml:"registry"`
	Concurrency int    `yaml:"concurrency"`
}

// LoadConfig assembles the effective configuration for a project
// directory: defaults, then the project's NpmConfig.yaml when present,
// then environment overrides.
func LoadConfig(dir string, env []string) (Config, error) {
	cfg := Config{}

	path := filepath.Join(dir, ConfigName)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "unable to parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return cfg, errors.Wrapf(err, "unable to read %s", path)
	}

	applyEnv(&cfg, env)
	return cfg, nil
}

func applyEnv(cfg *Config, env []string) {
	if v := getEnv(env, "NPM_REGISTRY"); v != "" {
		cfg.Registry = v
	}
	if v := getEnv(env, "NPM_PRODUCTION"); v != "" {
		cfg.Production = envBool(v)
	}
	if v := getEnv(env, "NPM_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
}

func envBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// getEnv returns the last instance of an environment variable.
func getEnv(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		kv := env[i]
		if len(kv) > len(key) && kv[:len(key)] == key && kv[len(key)] == '=' {
			return kv[len(key)+1:]
		}
	}
	return ""
}
