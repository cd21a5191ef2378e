package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/classline/classline/internal/common/httpclient"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// Config represents the configuration for the Classline CLI.
// It contains platform connection details.
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version"`
	// ServerURL is the URL of the Classline platform server
	ServerURL string `yaml:"server_url"`
	// APIToken is an optional pre-issued token for teacher commands
	APIToken string `yaml:"api_token,omitempty"`
}

var config *Config

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/classline on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "classline", DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the specified file.
// A .env file in the working directory and CLASSLINE_* environment
// variables can override file values.
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	_ = godotenv.Load() // no error if .env doesn't exist

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		// An env-provided server URL is enough to run without a file.
		if os.IsNotExist(err) && os.Getenv("CLASSLINE_SERVER_URL") != "" {
			yamlStr = nil
		} else {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var c Config
	if len(yamlStr) > 0 {
		if err = yaml.Unmarshal(yamlStr, &c); err != nil {
			return fmt.Errorf("unable to parse config file: %w", err)
		}
	}

	if v := os.Getenv("CLASSLINE_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("CLASSLINE_API_TOKEN"); v != "" {
		c.APIToken = v
	}

	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}

	c.ServerURL = httpclient.MorphServer(c.ServerURL)

	config = &c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the current configuration to the specified file
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), os.ModePerm)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// ValidateConfig validates the configuration
func (cfg *Config) ValidateConfig() error {
	if cfg.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		return errors.New("server_url must start with http:// or https://")
	}
	return nil
}

// GetServerURL returns the properly formatted server URL
func (cfg *Config) GetServerURL() string {
	return httpclient.MorphServer(cfg.ServerURL)
}

// GetToken returns the pre-issued API token, if any. Student commands
// override it per-request with the session's activity token.
func (cfg *Config) GetToken() string {
	return cfg.APIToken
}

var _ httpclient.Configurator = &Config{}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `Manage CLI configuration settings like the platform server connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverFlag, _ := cmd.Flags().GetString("server")
		if serverFlag != "" {
			return setServerConfig(serverFlag)
		}

		cmd.Help()
		return nil
	},
}

// setServerConfig writes the server URL to the config file, preserving any
// other settings already there.
func setServerConfig(server string) error {
	cfg := &Config{}
	if err := LoadConfig(configFile); err == nil {
		cfg = GetConfig()
	}
	cfg.Version = "0.1.0"
	cfg.ServerURL = httpclient.MorphServer(server)

	if err := cfg.ValidateConfig(); err != nil {
		return err
	}

	path := configFile
	if path == "" {
		var err error
		path, err = GetDefaultConfigPath()
		if err != nil {
			return err
		}
	}

	if err := cfg.WriteConfig(path); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]string{
			"status":     "success",
			"server_url": cfg.ServerURL,
		})
	} else {
		okLabel.Println("✓ Configuration saved")
		fmt.Printf("Server: %s\n", cfg.ServerURL)
	}
	return nil
}

func init() {
	configCmd.Flags().String("server", "", "Platform server URL (e.g. https://class.example.org)")
	rootCmd.AddCommand(configCmd)
}
