package serv

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// configSchema constrains the YAML config file. The definition is
// closed, so misspelled keys fail validation instead of being ignored.
const configSchema = `
#Config: {
	listen?:   string & !=""
	db_path?:  string & !=""
	log_json?: bool
	auth?: {
		secret?: string
		issuer?: string
	}
}
`

// Config holds the service configuration.
type Config struct {
	Listen  string     `yaml:"listen"`
	DBPath  string     `yaml:"db_path"`
	LogJSON bool       `yaml:"log_json"`
	Auth    AuthConfig `yaml:"auth"`
}

// AuthConfig configures bearer-token authentication. Auth is disabled
// when Secret is empty.
type AuthConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen: "127.0.0.1:8080",
		DBPath: "tabq.db",
	}
}

// LoadConfig reads a YAML config file and validates it against the
// embedded schema before decoding.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig validates and decodes YAML config bytes.
func ParseConfig(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validateConfig(raw); err != nil {
		return Config{}, err
	}

	conf := DefaultConfig()
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return conf, nil
}

// validateConfig checks the decoded YAML against the CUE schema.
func validateConfig(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := def.Unify(ctx.Encode(raw))
	if err := val.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
