package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaharia-lab/angelia/internal/channel"
)

// ChannelSet holds the per-scheme channel configuration read from the
// channels YAML file. Top-level keys are recipient schemes; each value is the
// key/value block handed to that channel's factory.
//
//	mailto:
//	  server: smtp.example.com
//	  port: 587
//	  from: alerts@example.com
//	ovh:
//	  application_key: ${ENV:OVH_APPLICATION_KEY}
type ChannelSet struct {
	channels map[string]channel.Config
}

// Has reports whether a block exists for scheme.
func (s *ChannelSet) Has(scheme string) bool {
	_, ok := s.channels[scheme]
	return ok
}

// Get returns a copy of the block for scheme, or nil if there is none.
func (s *ChannelSet) Get(scheme string) channel.Config {
	cfg, ok := s.channels[scheme]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// All returns a copy of every block keyed by scheme.
func (s *ChannelSet) All() map[string]channel.Config {
	out := make(map[string]channel.Config, len(s.channels))
	for k, v := range s.channels {
		out[k] = v.Clone()
	}
	return out
}

// Schemes returns the configured schemes in sorted order.
func (s *ChannelSet) Schemes() []string {
	out := make([]string, 0, len(s.channels))
	for k := range s.channels {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadChannels reads the channels YAML file at filePath. If the file does not
// exist, an empty set is returned (not an error). String values may reference
// environment variables as ${ENV:VAR_NAME}.
func LoadChannels(filePath string) (*ChannelSet, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // path is from admin-configured data dir
	if err != nil {
		if os.IsNotExist(err) {
			return &ChannelSet{channels: make(map[string]channel.Config)}, nil
		}
		return nil, fmt.Errorf("reading channels file %q: %w", filePath, err)
	}
	return ParseChannels(data)
}

// ParseChannels parses a channels YAML document.
func ParseChannels(data []byte) (*ChannelSet, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing channels file: %w", err)
	}

	set := &ChannelSet{channels: make(map[string]channel.Config, len(raw))}
	for scheme, block := range raw {
		key := strings.ToLower(strings.TrimSpace(scheme))
		if key == "" {
			return nil, fmt.Errorf("parsing channels file: empty scheme")
		}
		if _, dup := set.channels[key]; dup {
			return nil, fmt.Errorf("channel %q: configured more than once", key)
		}
		cfg := make(channel.Config, len(block))
		for k, v := range block {
			if sv, ok := v.(string); ok {
				interpolated, err := interpolateEnv(sv)
				if err != nil {
					return nil, fmt.Errorf("channel %q key %q: %w", key, k, err)
				}
				v = interpolated
			}
			cfg[k] = v
		}
		set.channels[key] = cfg
	}
	return set, nil
}

// interpolateEnv replaces all ${ENV:VAR_NAME} patterns in s with the corresponding
// environment variable values. Returns an error if a referenced variable is not set.
// Substituted values are not scanned again.
func interpolateEnv(s string) (string, error) {
	const prefix = "${ENV:"
	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, prefix)
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], "}")
		if end == -1 {
			break
		}
		end += start
		varName := rest[start+len(prefix) : end]
		value := os.Getenv(varName)
		if value == "" {
			return "", fmt.Errorf("required env var %q is not set", varName)
		}
		b.WriteString(rest[:start])
		b.WriteString(value)
		rest = rest[end+1:]
	}
	b.WriteString(rest)
	return b.String(), nil
}
