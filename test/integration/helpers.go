//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/fivetwenty-io/hubclient/pkg/hub"
	"github.com/fivetwenty-io/hubclient/pkg/hubclient"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	BaseURI  string
	APIKey   string
	Resource string
	Version  string
	HubPath  string
	Verbose  bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	resource := os.Getenv("HUB_TEST_RESOURCE")
	if resource == "" {
		resource = "persons"
	}

	return &TestConfig{
		BaseURI:  os.Getenv("HUB_BASE_URI"),
		APIKey:   os.Getenv("HUB_API_KEY"),
		Resource: resource,
		Version:  os.Getenv("HUB_TEST_VERSION"),
		HubPath:  getHubPath(),
		Verbose:  os.Getenv("HUB_VERBOSE") == "true",
	}
}

// getHubPath determines the path to the hub binary.
func getHubPath() string {
	if path := os.Getenv("HUB_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../hub",
		"./hub",
		"../hub",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "hub" // Fallback to PATH
}

// SkipIfMissingConfig skips the test when no hub is configured.
func (c *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if c.BaseURI == "" || c.APIKey == "" {
		t.Skip("HUB_BASE_URI and HUB_API_KEY must be set for integration tests")
	}
}

// NewClient creates a library client for the configured hub.
func (c *TestConfig) NewClient(t *testing.T) hub.Client {
	t.Helper()

	client, err := hubclient.NewWithAPIKey(c.BaseURI, c.APIKey)
	if err != nil {
		t.Fatalf("failed to create hub client: %v", err)
	}

	return client
}

// Context returns a context bounded for one integration step.
func Context(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	return ctx
}

// CommandRunner runs the hub binary against an isolated config file.
type CommandRunner struct {
	config     *TestConfig
	t          *testing.T
	configFile string
}

// NewCommandRunner creates a runner with its own config file.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:     config,
		t:          t,
		configFile: t.TempDir() + "/config.yml",
	}
}

// Run executes the hub binary with args and returns stdout and stderr.
func (r *CommandRunner) Run(args ...string) (string, string, error) {
	full := append([]string{"--config", r.configFile}, args...)

	cmd := exec.Command(r.config.HubPath, full...)
	cmd.Env = append(os.Environ(),
		"HUB_BASE_URI="+r.config.BaseURI,
		"HUB_API_KEY="+r.config.APIKey,
	)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if r.config.Verbose {
		r.t.Logf("hub %s\nstdout: %s\nstderr: %s", strings.Join(args, " "), stdout.String(), stderr.String())
	}

	if err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("hub %s: %w", strings.Join(args, " "), err)
	}

	return stdout.String(), stderr.String(), nil
}
