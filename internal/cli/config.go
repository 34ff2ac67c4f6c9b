package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds guardctl settings. Flags override the environment.
type Config struct {
	ServerURL string `env:"GUARDCTL_SERVER" envDefault:"http://127.0.0.1:8080"`
	Token     string `env:"GUARDCTL_TOKEN"`
	TokenFile string `env:"GUARDCTL_TOKEN_FILE,expand" envDefault:"${HOME}/.guardctl/token"`
	Output    string `env:"GUARDCTL_OUTPUT" envDefault:"text"`

	// NoColor follows the no-color.org convention: any non-empty value
	// disables colour, so it's read by hand rather than parsed as a bool
	NoColor bool
}

// LoadConfig reads GUARDCTL_* variables
func LoadConfig() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("guardctl environment: %w", err)
	}
	c.NoColor = os.Getenv("NO_COLOR") != ""
	return c, nil
}

// Validate checks the final values after flags are applied
func (c *Config) Validate() error {
	if c.Output != FormatText && c.Output != FormatJSON {
		return fmt.Errorf("unknown output format %q, want %s or %s", c.Output, FormatText, FormatJSON)
	}
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("server URL must not be empty")
	}
	return nil
}

// LoadToken reads the token file when no token was given directly. A
// missing file means the server runs without authentication.
func (c *Config) LoadToken() error {
	if c.Token != "" || c.TokenFile == "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

func (c *Config) jsonOutput() bool {
	return c.Output == FormatJSON
}
