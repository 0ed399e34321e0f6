// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads swarmmesh's process configuration from environment
// variables, with an optional on-disk YAML overlay and ${VAR} substitution
// in file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/logger"
	"gopkg.in/yaml.v3"
)

// Identity is the process's required agent identity.
type Identity struct {
	AgentID     string `yaml:"agent_id" json:"agent_id"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	PublicKey   string `yaml:"public_key" json:"public_key"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Ingress controls the ingress pipeline (C5).
type Ingress struct {
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	QueueMaxSize       int `yaml:"queue_max_size" json:"queue_max_size"`
}

// Store controls the embedded state store (C2).
type Store struct {
	DBPath string `yaml:"db_path" json:"db_path"`
}

// Wake controls the wake trigger (C7).
type Wake struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Endpoint string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// WakeEndpoint controls the in-process /api/wake handler and its invoker.
type WakeEndpoint struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	InvokeMethod   string        `yaml:"invoke_method" json:"invoke_method"` // "noop" or "tmux"
	TmuxTarget     string        `yaml:"tmux_target,omitempty" json:"tmux_target,omitempty"`
	Secret         string        `yaml:"secret,omitempty" json:"secret,omitempty"`
	SessionFile    string        `yaml:"session_file" json:"session_file"`
	SessionTimeout time.Duration `yaml:"session_timeout" json:"session_timeout"`
}

// Config is the complete process configuration.
type Config struct {
	Identity     Identity     `yaml:"identity" json:"identity"`
	Ingress      Ingress      `yaml:"ingress" json:"ingress"`
	Store        Store        `yaml:"store" json:"store"`
	Wake         Wake         `yaml:"wake" json:"wake"`
	WakeEndpoint WakeEndpoint `yaml:"wake_endpoint" json:"wake_endpoint"`
	LogLevel     string       `yaml:"log_level" json:"log_level"`
}

// Default returns a Config with every documented default applied.
func Default() Config {
	return Config{
		Ingress: Ingress{
			RateLimitPerMinute: 60,
			QueueMaxSize:       10000,
		},
		Store: Store{
			DBPath: "swarmmesh.db",
		},
		Wake: Wake{
			Enabled: false,
			Timeout: 5 * time.Second,
		},
		WakeEndpoint: WakeEndpoint{
			Enabled:        false,
			InvokeMethod:   "noop",
			SessionFile:    "swarmmesh-session.json",
			SessionTimeout: 30 * time.Minute,
		},
		LogLevel: "info",
	}
}

// Load builds a Config from an optional YAML file overlaid with environment
// variables; environment variables always win over the file.
func Load(yamlPath string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: reading %s: %w", yamlPath, err)
			}
		} else {
			expanded := SubstituteEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return cfg, fmt.Errorf("config: parsing %s: %w", yamlPath, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Identity.AgentID, "AGENT_ID")
	setString(&cfg.Identity.Endpoint, "AGENT_ENDPOINT")
	setString(&cfg.Identity.PublicKey, "AGENT_PUBLIC_KEY")
	setString(&cfg.Identity.Name, "AGENT_NAME")
	setString(&cfg.Identity.Description, "AGENT_DESCRIPTION")

	setInt(&cfg.Ingress.RateLimitPerMinute, "RATE_LIMIT_MESSAGES_PER_MINUTE")
	setInt(&cfg.Ingress.QueueMaxSize, "QUEUE_MAX_SIZE")

	setString(&cfg.Store.DBPath, "DB_PATH")

	setBool(&cfg.Wake.Enabled, "WAKE_ENABLED")
	setString(&cfg.Wake.Endpoint, "WAKE_ENDPOINT")
	setDuration(&cfg.Wake.Timeout, "WAKE_TIMEOUT")

	setBool(&cfg.WakeEndpoint.Enabled, "WAKE_EP_ENABLED")
	setString(&cfg.WakeEndpoint.InvokeMethod, "WAKE_EP_INVOKE_METHOD")
	setString(&cfg.WakeEndpoint.TmuxTarget, "WAKE_EP_TMUX_TARGET")
	setString(&cfg.WakeEndpoint.Secret, "WAKE_EP_SECRET")
	setString(&cfg.WakeEndpoint.SessionFile, "WAKE_EP_SESSION_FILE")
	setDuration(&cfg.WakeEndpoint.SessionTimeout, "WAKE_EP_SESSION_TIMEOUT")

	setString(&cfg.LogLevel, "SWARMMESH_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("ignoring non-integer environment value, keeping default",
			logger.String("key", key), logger.String("value", v), logger.Int("default", *dst))
		return
	}
	*dst = n
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if secs, serr := strconv.Atoi(v); serr == nil {
			*dst = time.Duration(secs) * time.Second
			return
		}
		logger.Warn("ignoring unparseable duration, keeping default",
			logger.String("key", key), logger.String("value", v))
		return
	}
	*dst = d
}

// setBool parses a boolean environment variable; an unrecognised value
// falls back to the existing default with a logged warning.
func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("unrecognised boolean environment value, using default",
			logger.String("key", key), logger.String("value", v), logger.Bool("default", *dst))
		return
	}
	*dst = b
}
