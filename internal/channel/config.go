package channel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the flat key/value configuration block of one channel. Values are
// strings, numbers or booleans as decoded from YAML or JSON. A Config must not
// be modified after it has been handed to a Factory.
type Config map[string]any

// Has reports whether key is set to a non-empty value.
func (c Config) Has(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns the value of key rendered as a string, or def when unset.
func (c Config) String(key, def string) string {
	if !c.Has(key) {
		return def
	}
	switch v := c[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// RequiredString returns the value of key or a ConfigError when it is unset.
func (c Config) RequiredString(key string) (string, error) {
	if !c.Has(key) {
		return "", missingKey(key)
	}
	return c.String(key, ""), nil
}

// Int returns the integer value of key, or def when unset. Numeric strings
// are accepted.
func (c Config) Int(key string, def int) (int, error) {
	if !c.Has(key) {
		return def, nil
	}
	switch v := c[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, invalidValue(key, v, nil)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, invalidValue(key, v, err)
		}
		return n, nil
	default:
		return 0, invalidValue(key, v, nil)
	}
}

// Bool returns the boolean value of key, or def when unset. Only a
// case-insensitive "true" string counts as true, mirroring how flag-style
// options such as nostop are written in configuration files.
func (c Config) Bool(key string, def bool) (bool, error) {
	if !c.Has(key) {
		return def, nil
	}
	switch v := c[key].(type) {
	case bool:
		return v, nil
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true"), nil
	default:
		return false, invalidValue(key, v, nil)
	}
}

// Duration returns the duration value of key, or def when unset. Strings are
// parsed with time.ParseDuration; bare numbers are seconds.
func (c Config) Duration(key string, def time.Duration) (time.Duration, error) {
	if !c.Has(key) {
		return def, nil
	}
	switch v := c[key].(type) {
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, invalidValue(key, v, err)
		}
		return d, nil
	default:
		n, err := c.Int(key, 0)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * time.Second, nil
	}
}

// OneOf returns the string value of key, or def when unset, and rejects values
// outside allowed.
func (c Config) OneOf(key, def string, allowed ...string) (string, error) {
	v := c.String(key, def)
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", invalidValue(key, v, fmt.Errorf("want one of %s", strings.Join(allowed, ", ")))
}

// Fingerprint returns a stable digest of the configuration, used to tell two
// configurations of the same scheme apart.
func (c Config) Fingerprint() string {
	// encoding/json sorts map keys, which makes the encoding deterministic.
	b, err := json.Marshal(map[string]any(c))
	if err != nil {
		b = []byte(fmt.Sprintf("%v", map[string]any(c)))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Clone returns a shallow copy of c.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
