package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/xinpianchang/nextgo"
	"github.com/xinpianchang/nextgo/internal/errors"
)

const (
	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default bind host.
	DefaultHost = "localhost"

	// DefaultBuildDir is the default build output directory.
	DefaultBuildDir = "build"

	// DefaultMetricsPath is where metrics are exposed when enabled.
	DefaultMetricsPath = "/metrics"
)

// FileNames are the configuration file names, in lookup order.
var FileNames = []string{"nextgo.json", "nextgo.yaml", "nextgo.yml"}

//go:embed schema.cue
var schemaSource string

// Config is the nextgo configuration file.
type Config struct {
	// Port is the server port.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Host is the bind host.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Dev enables development mode: error details in responses, hot
	// reload and uncached assets.
	Dev bool `json:"dev,omitempty" yaml:"dev,omitempty"`

	// BuildDir is the build output served under /_next/ and /static/.
	// Ignored when S3 is set.
	BuildDir string `json:"buildDir,omitempty" yaml:"buildDir,omitempty"`

	// AssetPrefix is the public origin or path assets are served from.
	AssetPrefix string `json:"assetPrefix,omitempty" yaml:"assetPrefix,omitempty"`

	// UseFileSystemPublicRoutes hands unanswered requests to the engine.
	// Default: true.
	UseFileSystemPublicRoutes *bool `json:"useFileSystemPublicRoutes,omitempty" yaml:"useFileSystemPublicRoutes,omitempty"`

	HotReloadPattern string `json:"hotReloadPattern,omitempty" yaml:"hotReloadPattern,omitempty"`
	ErrorPage        string `json:"errorPage,omitempty" yaml:"errorPage,omitempty"`

	// StyleSheets and Scripts are logical asset names linked from every
	// document, resolved through the build manifest.
	StyleSheets []string `json:"styleSheets,omitempty" yaml:"styleSheets,omitempty"`
	Scripts     []string `json:"scripts,omitempty" yaml:"scripts,omitempty"`

	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Static  StaticConfig  `json:"static" yaml:"static"`
	S3      *S3Config     `json:"s3,omitempty" yaml:"s3,omitempty"`
	Watch   WatchConfig   `json:"watch,omitempty" yaml:"watch,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing wraps requests in OpenTelemetry spans.
	Tracing bool `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// FetchConfig selects the snapshot negotiation signal.
type FetchConfig struct {
	Mode   string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Header string `json:"header,omitempty" yaml:"header,omitempty"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Param  string `json:"param,omitempty" yaml:"param,omitempty"`
}

// StaticConfig configures the reserved asset path space.
type StaticConfig struct {
	Extensions            []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	AllowOriginExtensions []string `json:"allowOriginExtensions,omitempty" yaml:"allowOriginExtensions,omitempty"`
	AllowOriginPatterns   []string `json:"allowOriginPatterns,omitempty" yaml:"allowOriginPatterns,omitempty"`
}

// S3Config serves the build from a bucket instead of BuildDir.
type S3Config struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Endpoint selects an S3-compatible service; requests use path-style
	// addressing.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// WatchConfig configures the development file watcher.
type WatchConfig struct {
	// Paths are watched for changes. Default: the build directory.
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	// Ignore holds glob patterns matched against base names.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	fetch := nextgo.DefaultFetchConfig()
	static := nextgo.DefaultStaticConfig()
	fsRoutes := true
	return &Config{
		Port:                      DefaultPort,
		Host:                      DefaultHost,
		BuildDir:                  DefaultBuildDir,
		UseFileSystemPublicRoutes: &fsRoutes,
		HotReloadPattern:          nextgo.DefaultHotReloadPattern,
		ErrorPage:                 nextgo.DefaultErrorPage,
		Fetch: FetchConfig{
			Mode:   fetch.Mode,
			Header: fetch.Header,
			Value:  fetch.Value,
			Param:  fetch.Param,
		},
		Static: StaticConfig{
			Extensions:            static.Extensions,
			AllowOriginExtensions: static.AllowOriginExtensions,
			AllowOriginPatterns:   static.AllowOriginPatterns,
		},
		Watch: WatchConfig{
			Ignore: []string{".*", "*~", "*.swp"},
		},
		Metrics: MetricsConfig{
			Path: DefaultMetricsPath,
		},
	}
}

// Find returns the path of the configuration file in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.New("E100").
		WithDetail("No " + strings.Join(FileNames, ", ") + " found in " + dir).
		WithSuggestion("Run 'nextgo config init' to write a default configuration")
}

// Load reads the configuration file in dir.
func Load(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads, schema-checks, decodes and validates a configuration
// file. The format follows the file extension; anything but .yaml and .yml
// is read as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No configuration file at " + path).
				WithSuggestion("Run 'nextgo config init' to write a default configuration")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	if err := checkSchema(path, data); err != nil {
		return nil, err
	}

	cfg := New()
	if len(bytes.TrimSpace(data)) > 0 {
		if isYAML(path) {
			err = yaml.Unmarshal(data, cfg)
		} else {
			err = json.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, errors.New("E101").Wrap(err)
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// checkSchema unifies the raw document with the embedded schema.
func checkSchema(path string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).
		LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return errors.Newf(errors.CategoryConfig, "invalid embedded schema: %v", err)
	}

	var doc cue.Value
	if isYAML(path) {
		f, err := cueyaml.Extract(path, data)
		if err != nil {
			return locate(errors.New("E101").Wrap(err), path, err)
		}
		doc = ctx.BuildFile(f)
	} else {
		doc = ctx.CompileBytes(data, cue.Filename(path))
	}
	if err := doc.Err(); err != nil {
		return locate(errors.New("E101").Wrap(err), path, err)
	}

	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return locate(errors.New("E102").Wrap(err), path, err)
	}
	return nil
}

// locate attaches the first position of cause that lies in path.
func locate(e *errors.Error, path string, cause error) *errors.Error {
	for _, ce := range cueerrors.Errors(cause) {
		positions := append([]token.Pos{ce.Position()}, ce.InputPositions()...)
		for _, pos := range positions {
			if pos.IsValid() && pos.Filename() == path {
				return e.WithLocation(path, pos.Line(), pos.Column())
			}
		}
	}
	return e
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as YAML for .yaml and .yml
// files and as indented JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E105").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E105").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in defaults for fields a file set to zero values.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.BuildDir == "" {
		c.BuildDir = DefaultBuildDir
	}
	if len(c.Watch.Paths) == 0 {
		c.Watch.Paths = []string{c.BuildDir}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.UseFileSystemPublicRoutes == nil {
		fsRoutes := true
		c.UseFileSystemPublicRoutes = &fsRoutes
	}
}

// Validate performs the checks the schema cannot express.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("E104").
			WithDetail(fmt.Sprintf("port %d is not between 1 and 65535", c.Port))
	}

	patterns := append([]string{c.HotReloadPattern}, c.Static.AllowOriginPatterns...)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return errors.New("E103").Wrap(err).
				WithSuggestion(fmt.Sprintf("Check the pattern %q", p))
		}
	}

	if err := c.App().Validate(); err != nil {
		return errors.New("E102").Wrap(err)
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// App returns the middleware configuration.
func (c *Config) App() nextgo.Config {
	cfg := nextgo.DefaultConfig()
	cfg.Fetch = nextgo.FetchConfig{
		Mode:   c.Fetch.Mode,
		Header: c.Fetch.Header,
		Value:  c.Fetch.Value,
		Param:  c.Fetch.Param,
	}
	cfg.Static = nextgo.StaticConfig{
		Extensions:            c.Static.Extensions,
		AllowOriginExtensions: c.Static.AllowOriginExtensions,
		AllowOriginPatterns:   c.Static.AllowOriginPatterns,
	}
	cfg.AssetPrefix = c.AssetPrefix
	cfg.DevMode = c.Dev
	if c.UseFileSystemPublicRoutes != nil {
		cfg.UseFileSystemPublicRoutes = *c.UseFileSystemPublicRoutes
	}
	if c.HotReloadPattern != "" {
		cfg.HotReloadPattern = c.HotReloadPattern
	}
	if c.ErrorPage != "" {
		cfg.ErrorPage = c.ErrorPage
	}
	return cfg
}

// Logger returns the process logger: text in development, JSON otherwise.
func (c *Config) Logger() *slog.Logger {
	if c.Dev {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
