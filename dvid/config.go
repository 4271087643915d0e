package dvid

import (
	"fmt"
	"strings"
)

// Config is a map of keyword to arbitrary data to specify configurations via keyword.
// Keys are case-insensitive.
type Config map[string]interface{}

// NewConfig returns a Config with lowercased keys from the given settings, e.g., a
// decoded TOML table.
func NewConfig(settings map[string]interface{}) Config {
	c := make(Config, len(settings))
	for k, v := range settings {
		c[strings.ToLower(k)] = v
	}
	return c
}

// Set sets a value for the key.
func (c Config) Set(key string, value interface{}) {
	c[strings.ToLower(key)] = value
}

// GetString returns a string value for the key.  found is false if the key is absent.
func (c Config) GetString(key string) (s string, found bool, err error) {
	v, found := c[strings.ToLower(key)]
	if !found {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("setting %q must be a string, got %v", key, v)
	}
	return s, true, nil
}

// GetBool returns a bool value for the key.  found is false if the key is absent.
func (c Config) GetBool(key string) (b bool, found bool, err error) {
	v, found := c[strings.ToLower(key)]
	if !found {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, true, fmt.Errorf("setting %q must be a bool, got %v", key, v)
	}
	return b, true, nil
}

// GetInt returns an int value for the key.  TOML and JSON decoders produce int64 and
// float64 respectively, so both are accepted.
func (c Config) GetInt(key string) (i int, found bool, err error) {
	v, found := c[strings.ToLower(key)]
	if !found {
		return 0, false, nil
	}
	switch x := v.(type) {
	case int:
		return x, true, nil
	case int64:
		return int(x), true, nil
	case float64:
		if x != float64(int(x)) {
			return 0, true, fmt.Errorf("setting %q must be an integer, got %v", key, v)
		}
		return int(x), true, nil
	default:
		return 0, true, fmt.Errorf("setting %q must be an integer, got %v", key, v)
	}
}

// StoreConfig is a store-specific configuration where each store implementation
// defines the types of parameters it accepts.
type StoreConfig struct {
	Config

	// Engine is a simple name describing the engine, e.g., "badger"
	Engine string
}

func (sc StoreConfig) String() string {
	path, _, _ := sc.GetString("path")
	if path == "" {
		return sc.Engine
	}
	return fmt.Sprintf("%s @ %s", sc.Engine, path)
}
