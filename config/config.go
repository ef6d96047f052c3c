// Package config loads the declarative description of the datastores a schema runner manages.
//
// Settings are layered, lowest precedence first: built-in defaults, a YAML file, CASS_SCHEMA_
// environment variables, then command-line flags that were explicitly set. Nested keys are reached
// from the environment with a double underscore, so CASS_SCHEMA_DATASTORES__MAIN__KEYSPACE sets
// datastores.main.keyspace.
package config

import (
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/logan/cassschema"
)

const (
	EnvPrefix = "CASS_SCHEMA_"

	DefaultSchemaBasePath = "cass_schema"
	DefaultPort           = 9042
	DefaultConsistency    = "quorum"
	DefaultTimeout        = 5 * time.Second
)

// ErrInvalid is returned, wrapped, for configurations that cannot describe a usable set of datastores.
var ErrInvalid = errors.New("invalid configuration")

// flagKeys maps the flags that override configuration to their keys. Other flags are ignored.
var flagKeys = map[string]string{
	"schema-base-path": "schema_base_path",
	"disallow-drops":   "disallow_drops",
}

// Config is the resolved configuration.
type Config struct {
	SchemaBasePath string                     `koanf:"schema_base_path"`
	DisallowDrops  bool                       `koanf:"disallow_drops"`
	Stores         map[string]DataStoreConfig `koanf:"datastores"`

	// File is the configuration file that was read, if any.
	File string `koanf:"-"`
}

// DataStoreConfig describes one datastore and the cluster it lives on.
type DataStoreConfig struct {
	Hosts       []string      `koanf:"hosts"`
	Port        int           `koanf:"port"`
	Keyspace    string        `koanf:"keyspace"`
	Replication string        `koanf:"replication"`
	Schema      string        `koanf:"schema"` // Defaults to the datastore's name.
	Consistency string        `koanf:"consistency"`
	Timeout     time.Duration `koanf:"timeout"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	CAPath      string        `koanf:"ca_path"`
}

// Load reads the configuration from path, the environment and flags. An empty path skips the file.
// A relative schema_base_path read from the file is taken relative to the file's directory, unless a
// flag overrides it.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"schema_base_path": DefaultSchemaBasePath,
		"disallow_drops":   false,
	}, "."), nil); err != nil {
		return nil, errors.Wrap(err, "loading defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}

	baseFromFlag := false
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			if key == "schema_base_path" {
				baseFromFlag = true
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "loading flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	cfg.File = path
	if path != "" && !baseFromFlag && !filepath.IsAbs(cfg.SchemaBasePath) {
		cfg.SchemaBasePath = filepath.Join(filepath.Dir(path), cfg.SchemaBasePath)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// envValue maps CASS_SCHEMA_DATASTORES__MAIN__HOSTS to datastores.main.hosts. Host lists are
// comma-separated.
func envValue(key, value string) (string, interface{}) {
	key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
	if key == "hosts" || strings.HasSuffix(key, ".hosts") {
		hosts := make([]string, 0)
		for _, h := range strings.Split(value, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
		return key, hosts
	}
	return key, value
}

func (c *Config) applyDefaults() {
	for name, ds := range c.Stores {
		if ds.Port == 0 {
			ds.Port = DefaultPort
		}
		if ds.Consistency == "" {
			ds.Consistency = DefaultConsistency
		}
		if ds.Timeout == 0 {
			ds.Timeout = DefaultTimeout
		}
		if ds.Schema == "" {
			ds.Schema = name
		}
		c.Stores[name] = ds
	}
}

// Names returns the configured datastore names in lexical order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Stores))
	for name := range c.Stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every datastore can be created. The first problem found is returned.
func (c *Config) Validate() error {
	if len(c.Stores) == 0 {
		return errors.Wrap(ErrInvalid, cassschema.ErrNoDataStores.Error())
	}
	for _, name := range c.Names() {
		ds := c.Stores[name]
		switch {
		case ds.Keyspace == "":
			return errors.Wrapf(ErrInvalid, "datastore %s: keyspace is required", name)
		case ds.Replication == "":
			return errors.Wrapf(ErrInvalid, "datastore %s: replication is required", name)
		case len(ds.Hosts) == 0:
			return errors.Wrapf(ErrInvalid, "datastore %s: hosts are required", name)
		case ds.Port < 0 || ds.Port > 65535:
			return errors.Wrapf(ErrInvalid, "datastore %s: port %d out of range", name, ds.Port)
		}
	}
	return nil
}

// BuildOptions adjust how DataStores are built.
type BuildOptions struct {
	// Connector, when set, serves every cluster in place of a live connection.
	Connector cassschema.Connector
}

type clusterKey struct {
	hosts       string
	port        int
	consistency string
	timeout     time.Duration
	username    string
	password    string
	caPath      string
}

// DataStores validates the configuration and builds its datastores in lexical name order.
// Datastores whose cluster settings are identical share one Cluster, and so one connector.
func (c *Config) DataStores(opts BuildOptions) ([]*cassschema.DataStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	clusters := make(map[clusterKey]*cassschema.Cluster)
	var datastores []*cassschema.DataStore
	for _, name := range c.Names() {
		dc := c.Stores[name]
		key := clusterKey{
			hosts:       strings.Join(dc.Hosts, ","),
			port:        dc.Port,
			consistency: dc.Consistency,
			timeout:     dc.Timeout,
			username:    dc.Username,
			password:    dc.Password,
			caPath:      dc.CAPath,
		}
		cluster, ok := clusters[key]
		if !ok {
			if opts.Connector != nil {
				cluster = cassschema.ClusterFromConnector(opts.Connector)
			} else {
				cluster = cassschema.NewCluster(dc.Hosts, dc.Port)
				cluster.Config = cassschema.CassandraConfig{
					Consistency: dc.Consistency,
					Timeout:     dc.Timeout,
					Username:    dc.Username,
					Password:    dc.Password,
					CAPath:      dc.CAPath,
				}
			}
			clusters[key] = cluster
		}
		ds := cassschema.NewDataStore(name, cluster, dc.Keyspace, dc.Replication)
		if dc.Schema != "" {
			ds.Schema = dc.Schema
		}
		datastores = append(datastores, ds)
	}
	return datastores, nil
}

// Options returns runner options for the configured datastores.
func (c *Config) Options(opts BuildOptions) (cassschema.Options, error) {
	datastores, err := c.DataStores(opts)
	if err != nil {
		return cassschema.Options{}, err
	}
	return cassschema.Options{
		DataStores:     datastores,
		SchemaBasePath: c.SchemaBasePath,
		DisallowDrops:  c.DisallowDrops,
	}, nil
}

const maskedPassword = "********"

type yamlConfig struct {
	SchemaBasePath string                   `yaml:"schema_base_path"`
	DisallowDrops  bool                     `yaml:"disallow_drops"`
	DataStores     map[string]yamlDataStore `yaml:"datastores"`
}

type yamlDataStore struct {
	Hosts       []string `yaml:"hosts,flow"`
	Port        int      `yaml:"port"`
	Keyspace    string   `yaml:"keyspace"`
	Replication string   `yaml:"replication"`
	Schema      string   `yaml:"schema"`
	Consistency string   `yaml:"consistency"`
	Timeout     string   `yaml:"timeout"`
	Username    string   `yaml:"username,omitempty"`
	Password    string   `yaml:"password,omitempty"`
	CAPath      string   `yaml:"ca_path,omitempty"`
}

// WriteYAML writes the resolved configuration to w as YAML, with passwords masked.
func (c *Config) WriteYAML(w io.Writer) error {
	out := yamlConfig{
		SchemaBasePath: c.SchemaBasePath,
		DisallowDrops:  c.DisallowDrops,
		DataStores:     make(map[string]yamlDataStore, len(c.Stores)),
	}
	for name, ds := range c.Stores {
		y := yamlDataStore{
			Hosts:       ds.Hosts,
			Port:        ds.Port,
			Keyspace:    ds.Keyspace,
			Replication: ds.Replication,
			Schema:      ds.Schema,
			Consistency: ds.Consistency,
			Timeout:     ds.Timeout.String(),
			Username:    ds.Username,
			CAPath:      ds.CAPath,
		}
		if ds.Password != "" {
			y.Password = maskedPassword
		}
		out.DataStores[name] = y
	}
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return enc.Close()
}
