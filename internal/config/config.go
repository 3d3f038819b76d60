// Package config loads deployment configuration from HCL or YAML files.
// HCL files may call env("NAME") to pull credentials from the environment
// instead of committing them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"gopkg.in/yaml.v3"
)

// Config is the full deployment configuration.
type Config struct {
	API          *API          `hcl:"api,block" yaml:"api"`
	Organization *Organization `hcl:"organization,block" yaml:"organization"`
	Plan         *Plan         `hcl:"plan,block" yaml:"plan"`
	Deploy       *Deploy       `hcl:"deploy,block" yaml:"deploy"`
}

// API locates and authenticates against the remote incentive compensation
// REST endpoint.
type API struct {
	BaseURL  string `hcl:"base_url" yaml:"base_url"`
	Username string `hcl:"username" yaml:"username"`
	Password string `hcl:"password" yaml:"password"`
}

// Organization scopes every remote object to one business unit.
type Organization struct {
	OrgID int64 `hcl:"org_id" yaml:"org_id"`
}

// Plan carries the effectivity year stamped onto compiled objects.
type Plan struct {
	Year int `hcl:"year,optional" yaml:"year"`
}

// Deploy tunes orchestrator behavior. Timeouts are duration strings
// ("30s", "2m").
type Deploy struct {
	Force        bool   `hcl:"force,optional" yaml:"force"`
	ReadTimeout  string `hcl:"read_timeout,optional" yaml:"read_timeout"`
	WriteTimeout string `hcl:"write_timeout,optional" yaml:"write_timeout"`
}

// envFunc exposes env("NAME") to HCL expressions. Unset variables evaluate
// to the empty string, matching os.Getenv.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

// Load reads a configuration file, dispatching on extension: .hcl is parsed
// as HCL, .yaml and .yml as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	switch filepath.Ext(path) {
	case ".hcl":
		return ParseHCL(data, path)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported config format %q, expected .hcl, .yaml or .yml", filepath.Ext(path))
	}
}

// ParseHCL decodes HCL configuration. filename is used in diagnostics only.
func ParseHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("cannot parse config: %w", diags)
	}

	evalCtx := &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("cannot decode config: %w", diags)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// ParseYAML decodes YAML configuration.
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API == nil {
		c.API = &API{}
	}
	if c.Organization == nil {
		c.Organization = &Organization{}
	}
	if c.Plan == nil {
		c.Plan = &Plan{}
	}
	if c.Deploy == nil {
		c.Deploy = &Deploy{}
	}
	if c.Plan.Year == 0 {
		c.Plan.Year = time.Now().Year()
	}
}

// ValidateForDeploy checks the fields a remote deployment cannot run
// without. Compile-only workflows never need these.
func (c *Config) ValidateForDeploy() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("api.base_url is required for deployment")
	case c.API.Username == "":
		return fmt.Errorf("api.username is required for deployment")
	case c.API.Password == "":
		return fmt.Errorf("api.password is required for deployment")
	case c.Organization.OrgID <= 0:
		return fmt.Errorf("organization.org_id is required for deployment")
	}
	if _, _, err := c.Timeouts(); err != nil {
		return err
	}
	return nil
}

// Timeouts parses the deploy timeout strings. Zero values mean the gateway
// defaults apply.
func (c *Config) Timeouts() (read, write time.Duration, err error) {
	if c.Deploy.ReadTimeout != "" {
		if read, err = time.ParseDuration(c.Deploy.ReadTimeout); err != nil {
			return 0, 0, fmt.Errorf("invalid deploy.read_timeout: %w", err)
		}
	}
	if c.Deploy.WriteTimeout != "" {
		if write, err = time.ParseDuration(c.Deploy.WriteTimeout); err != nil {
			return 0, 0, fmt.Errorf("invalid deploy.write_timeout: %w", err)
		}
	}
	return read, write, nil
}
