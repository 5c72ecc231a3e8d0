package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// Environment variables that override the [mailworx] section of the config file.
const (
	EnvEndpoint = "MAILWORX_ENDPOINT"
	EnvAccount  = "MAILWORX_ACCOUNT"
	EnvUsername = "MAILWORX_USERNAME"
	EnvPassword = "MAILWORX_PASSWORD"
	EnvSource   = "MAILWORX_SOURCE"
)

// LoadEnv loads variables from the given dotenv files into the process environment.
//
// Files that do not exist are skipped. Variables already present in the environment win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides the credentials and endpoint of c with any MAILWORX_* variables set in the environment.
func ApplyEnv(c *Config) {
	for env, target := range map[string]*string{
		EnvEndpoint: &c.Mailworx.Endpoint,
		EnvAccount:  &c.Mailworx.Account,
		EnvUsername: &c.Mailworx.Username,
		EnvPassword: &c.Mailworx.Password,
		EnvSource:   &c.Mailworx.Source,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*target = v
		}
	}
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
