package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Mailworx MailworxConfig `toml:"mailworx"`
	Workflow WorkflowConfig `toml:"workflow"`
}

// MailworxConfig contains the webservice endpoint and the security context credentials.
type MailworxConfig struct {
	Endpoint          string  `toml:"endpoint"`
	Namespace         string  `toml:"namespace"`
	Account           string  `toml:"account"`
	Username          string  `toml:"username"`
	Password          string  `toml:"password"`
	Source            string  `toml:"source"`
	Language          string  `toml:"language"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// WorkflowConfig contains the fixed names used by the import → campaign → sections → send workflow.
type WorkflowConfig struct {
	ProfileName          string `toml:"profile_name"`
	TemplateCampaignName string `toml:"template_campaign_name"`
	CampaignName         string `toml:"campaign_name"`
	SenderAddress        string `toml:"sender_address"`
	SenderName           string `toml:"sender_name"`
	Subject              string `toml:"subject"`
	DuplicateCriteria    string `toml:"duplicate_criteria"`
	MediaPath            string `toml:"media_path"`
	AssetsDir            string `toml:"assets_dir"`
}

// Timeout returns the HTTP timeout for webservice calls. Zero means no timeout.
func (m MailworxConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Validate checks that the endpoint is an absolute URL and that every credential of the security context is set.
func (m MailworxConfig) Validate() error {
	u, err := url.Parse(m.Endpoint)
	if err != nil || m.Endpoint == "" {
		return fmt.Errorf("%w: endpoint %q is not a valid URL", ErrInvalidConfig, m.Endpoint)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: endpoint %q must be an absolute URL", ErrInvalidConfig, m.Endpoint)
	}

	missing := []string{}
	for name, value := range map[string]string{
		"account":  m.Account,
		"username": m.Username,
		"password": m.Password,
		"source":   m.Source,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingCredentials, sortedCopy(missing))
	}

	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults of the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
