package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/storage"
)

// DefaultBlockShapeSize is the extent along every axis of blocks when neither the
// job nor the configuration give a block shape.
const DefaultBlockShapeSize = 64

type tomlConfig struct {
	Logging dvid.LogConfig
	Store   map[string]storeConfig
	Cache   map[string]sizeConfig
	Compute computeConfig
}

type storeConfig map[string]interface{}

type sizeConfig struct {
	Size int // MB
}

type computeConfig struct {
	Workers    int
	Retries    int
	BlockShape []int64 `toml:"block_shape"`
}

// Config is the process configuration loaded from a TOML file.
type Config struct {
	tc       tomlConfig
	location string
}

// DefaultConfig returns the configuration used without a TOML file: an in-memory
// store named "memory", no caches, and one worker per CPU.
func DefaultConfig() *Config {
	return &Config{tc: tomlConfig{
		Store: map[string]storeConfig{"memory": {"engine": "memory"}},
	}}
}

// Some settings in the TOML can be given as relative paths.
// This function converts them in-place to absolute paths,
// assuming the given paths were relative to the TOML file's own directory.
func (c *tomlConfig) convertPathsToAbsolute(configPath string) error {
	var err error

	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = dvid.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path")
		}
	}

	// [store.foobar].path
	for alias, sc := range c.Store {
		p, ok := sc["path"]
		if !ok {
			continue
		}
		path, ok := p.(string)
		if !ok {
			return fmt.Errorf("don't understand path setting for store %q", alias)
		}
		if path == ":memory:" {
			continue
		}
		absPath, err := dvid.ConvertToAbsolute(path, configDir)
		if err != nil {
			return fmt.Errorf("error converting store.%s.path to absolute path: %q", alias, path)
		}
		sc["path"] = absPath
	}
	return nil
}

// LoadConfig loads the process configuration from a TOML file.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	var tc tomlConfig
	md, err := toml.DecodeFile(filename, &tc)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		dvid.Warningf("Ignoring unknown settings in %s: %v\n", filename, undecoded)
	}
	if err := tc.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if tc.Compute.Workers < 0 || tc.Compute.Retries < 0 {
		return nil, fmt.Errorf("compute workers and retries must not be negative")
	}
	dvid.Debugf("tomlConfig: %v\n", tc)
	return &Config{tc: tc, location: filename}, nil
}

// Location returns the TOML file the configuration came from, if any.
func (c *Config) Location() string {
	return c.location
}

// Logging returns the [logging] settings.
func (c *Config) Logging() *dvid.LogConfig {
	return &c.tc.Logging
}

// Workers returns the configured worker count, or dvid.NumCPU if unset.
func (c *Config) Workers() int {
	if c.tc.Compute.Workers > 0 {
		return c.tc.Compute.Workers
	}
	return dvid.NumCPU
}

// Retries returns the number of retries per failed block.
func (c *Config) Retries() int {
	return c.tc.Compute.Retries
}

// BlockShape returns the configured block shape for n-d volumes.
func (c *Config) BlockShape(ndims int) (dvid.Point, error) {
	if len(c.tc.Compute.BlockShape) == 0 {
		return dvid.Uniform(ndims, DefaultBlockShapeSize), nil
	}
	if len(c.tc.Compute.BlockShape) != ndims {
		return nil, fmt.Errorf("configured block shape %v is not %d-d", c.tc.Compute.BlockShape, ndims)
	}
	return dvid.SliceToPoint(c.tc.Compute.BlockShape)
}

// CacheSize returns the number of bytes reserved for the given identifier.
// If unset, will return 0.
func (c *Config) CacheSize(id string) int {
	if c.tc.Cache == nil {
		return 0
	}
	setting, found := c.tc.Cache[id]
	if !found {
		return 0
	}
	return setting.Size * dvid.Mega
}

// StoreAliases returns the configured store names.
func (c *Config) StoreAliases() []string {
	var aliases []string
	for alias := range c.tc.Store {
		aliases = append(aliases, alias)
	}
	return aliases
}

// StoreConfig returns the engine configuration of a [store.<alias>] section.
func (c *Config) StoreConfig(alias string) (dvid.StoreConfig, error) {
	sc, found := c.tc.Store[alias]
	if !found {
		return dvid.StoreConfig{}, fmt.Errorf("no store %q in configuration (have %v)", alias, c.StoreAliases())
	}
	settings := make(map[string]interface{}, len(sc))
	var engine string
	for k, v := range sc {
		if strings.ToLower(k) == "engine" {
			name, ok := v.(string)
			if !ok {
				return dvid.StoreConfig{}, fmt.Errorf("engine of store %q must be a string", alias)
			}
			engine = name
			continue
		}
		settings[k] = v
	}
	if engine == "" {
		return dvid.StoreConfig{}, fmt.Errorf("store %q has no engine setting", alias)
	}
	return dvid.StoreConfig{Config: dvid.NewConfig(settings), Engine: engine}, nil
}

// OpenStore opens the store with the given alias.
func (c *Config) OpenStore(alias string) (storage.KeyValueDB, error) {
	config, err := c.StoreConfig(alias)
	if err != nil {
		return nil, err
	}
	return storage.NewStore(config)
}

// ensureDir makes sure a directory exists for a file to be written.
func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
