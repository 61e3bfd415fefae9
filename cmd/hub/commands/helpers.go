package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"
	Masked       = "***"

	// Output formats.
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"

	// stdinPath reads a document from standard input.
	stdinPath = "-"

	// maxCellWidth truncates long JSON cells in tables.
	maxCellWidth = 80
)

// writeOutput renders value as JSON or YAML, or calls table for the table format.
func writeOutput(value interface{}, table func() error) error {
	output := viper.GetString(KeyOutput)

	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(value)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	case "", OutputFormatTable:
		return table()
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownOutputFormat, output)
	}
}

// decodeData parses an envelope body for structured output. Bodies that
// are not JSON are returned as the raw string.
func decodeData(data string) interface{} {
	var decoded interface{}

	err := json.Unmarshal([]byte(data), &decoded)
	if err != nil {
		return data
	}

	return decoded
}

// formatValue renders a table cell.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}

		return v
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return NotAvailable
		}

		return truncate(string(data))
	default:
		return fmt.Sprint(v)
	}
}

func truncate(s string) string {
	if len(s) <= maxCellWidth {
		return s
	}

	return s[:maxCellWidth-3] + "..."
}

// parseParams turns key=value pairs into a query, keeping their order.
func parseParams(pairs []string) (*hub.Query, error) {
	query := hub.NewQuery()

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParam, pair)
		}

		query.Set(key, value)
	}

	return query, nil
}

// readDocument reads a JSON document from path, or stdin for "-".
func readDocument(path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)

	if path == stdinPath {
		data, err = io.ReadAll(os.Stdin)
	} else {
		// path is supplied by the operator running the CLI
		// #nosec G304
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", hub.ErrInvalidArgument, path)
	}

	return data, nil
}

// document is a hub resource given as raw JSON on the command line.
type document struct {
	name    string
	version string
	id      string
	body    json.RawMessage
}

var (
	_ hub.Resource   = (*document)(nil)
	_ hub.Identified = (*document)(nil)
)

func (d *document) ResourceName() string { return d.name }

func (d *document) VersionType() string {
	if d.version == "" {
		return constants.DefaultEntityVersionType
	}

	return d.version
}

func (d *document) ResourceID() string {
	if d.id != "" {
		return d.id
	}

	var probe struct {
		ID string `json:"id"`
	}

	_ = json.Unmarshal(d.body, &probe)

	return probe.ID
}

// MarshalJSON sends the document unchanged.
func (d *document) MarshalJSON() ([]byte, error) {
	if len(d.body) == 0 {
		return []byte("{}"), nil
	}

	return d.body, nil
}
