package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// ConfigDirName is the directory under $HOME holding config.yml.
const ConfigDirName = ".hub"

// Viper keys. They double as config file keys and, upper-cased with a HUB_
// prefix, as environment variables.
const (
	KeyBaseURI          = "base-uri"
	KeyAPIKey           = "api-key"
	KeyOutput           = "output"
	KeyVerbose          = "verbose"
	KeyLogLevel         = "log-level"
	KeyTokenValidity    = "token-validity"
	KeyUseTokenClaims   = "use-token-claims"
	KeyMaxMessages      = "max-messages"
	KeyTotalCountPolicy = "total-count-policy"
	KeyTimeout          = "timeout"
	KeyToken            = "token"
	KeyTokenBaseURI     = "token-base-uri"
	KeyTokenExpiresAt   = "token-expires-at"
)

// Config represents the CLI configuration.
type Config struct {
	BaseURI          string        `json:"base-uri,omitempty"           yaml:"base-uri,omitempty"`
	APIKey           string        `json:"api-key,omitempty"            yaml:"api-key,omitempty"`
	Output           string        `json:"output,omitempty"             yaml:"output,omitempty"`
	LogLevel         string        `json:"log-level,omitempty"          yaml:"log-level,omitempty"`
	TokenValidity    time.Duration `json:"token-validity,omitempty"     yaml:"token-validity,omitempty"`
	UseTokenClaims   bool          `json:"use-token-claims,omitempty"   yaml:"use-token-claims,omitempty"`
	MaxMessages      int           `json:"max-messages,omitempty"       yaml:"max-messages,omitempty"`
	TotalCountPolicy string        `json:"total-count-policy,omitempty" yaml:"total-count-policy,omitempty"`
	Timeout          time.Duration `json:"timeout,omitempty"            yaml:"timeout,omitempty"`

	// Last token issued by the hub, reused until it expires.
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenBaseURI   string     `json:"token-base-uri,omitempty"   yaml:"token-base-uri,omitempty"`
	TokenExpiresAt *time.Time `json:"token-expires-at,omitempty" yaml:"token-expires-at,omitempty"`
}

// settableKeys maps the keys accepted by "config set" to their parsers.
var settableKeys = map[string]func(config *Config, value string) error{
	KeyBaseURI:  func(c *Config, v string) error { c.BaseURI = v; return nil },
	KeyAPIKey:   func(c *Config, v string) error { c.APIKey = v; return nil },
	KeyOutput:   func(c *Config, v string) error { c.Output = v; return nil },
	KeyLogLevel: func(c *Config, v string) error { c.LogLevel = v; return nil },
	KeyTokenValidity: func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.TokenValidity = d

		return err
	},
	KeyUseTokenClaims: func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.UseTokenClaims = b

		return err
	},
	KeyMaxMessages: func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.MaxMessages = n

		return err
	},
	KeyTotalCountPolicy: func(c *Config, v string) error {
		if _, ok := hub.ParseTotalCountPolicy(v); !ok {
			return fmt.Errorf("%w: %s", hub.ErrInvalidArgument, v)
		}

		c.TotalCountPolicy = v

		return nil
	},
	KeyTimeout: func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.Timeout = d

		return err
	},
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the hub CLI configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigClearTokenCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			masked := *config

			if masked.APIKey != "" {
				masked.APIKey = Masked
			}

			if masked.Token != "" {
				masked.Token = Masked
			}

			return writeOutput(&masked, func() error { return displayConfigTable(&masked) })
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value and save it to the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Set %s\n", args[0])

			return nil
		},
	}
}

func newConfigClearTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-token",
		Short: "Forget the cached hub token",
		Long:  "Remove the cached hub token so the next command authenticates again",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			config.Token = ""
			config.TokenBaseURI = ""
			config.TokenExpiresAt = nil

			err := saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = os.Stdout.WriteString("Cleared cached token\n")

			return nil
		},
	}
}

func setConfigValue(config *Config, key, value string) error {
	setter, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	err := setter(config, value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	return nil
}

// loadConfig reads the effective configuration from flags, environment and
// the config file.
func loadConfig() *Config {
	config := &Config{
		BaseURI:          viper.GetString(KeyBaseURI),
		APIKey:           viper.GetString(KeyAPIKey),
		Output:           viper.GetString(KeyOutput),
		LogLevel:         viper.GetString(KeyLogLevel),
		TokenValidity:    viper.GetDuration(KeyTokenValidity),
		UseTokenClaims:   viper.GetBool(KeyUseTokenClaims),
		MaxMessages:      viper.GetInt(KeyMaxMessages),
		TotalCountPolicy: viper.GetString(KeyTotalCountPolicy),
		Timeout:          viper.GetDuration(KeyTimeout),
		Token:            viper.GetString(KeyToken),
		TokenBaseURI:     viper.GetString(KeyTokenBaseURI),
	}

	if viper.IsSet(KeyTokenExpiresAt) {
		expiresAt := viper.GetTime(KeyTokenExpiresAt)
		if !expiresAt.IsZero() {
			config.TokenExpiresAt = &expiresAt
		}
	}

	return config
}

// configFilePath returns the file viper read, or $HOME/.hub/config.yml.
func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(home, ConfigDirName)

	err = os.MkdirAll(configDir, constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.yml"), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Keep this process consistent with the file.
	viper.Set(KeyToken, config.Token)
	viper.Set(KeyTokenBaseURI, config.TokenBaseURI)

	if config.TokenExpiresAt != nil {
		viper.Set(KeyTokenExpiresAt, *config.TokenExpiresAt)
	} else {
		viper.Set(KeyTokenExpiresAt, time.Time{})
	}

	return nil
}

func displayConfigTable(config *Config) error {
	var fields map[string]interface{}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	err = yaml.Unmarshal(data, &fields)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	for _, key := range keys {
		_ = table.Append(key, formatValue(fields[key]))
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
