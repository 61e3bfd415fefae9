package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// NewAuthCommand creates the auth command.
func NewAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate against the hub",
		Long:  "Exchange the API key for a hub token and cache it in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			if !client.Authenticate(cmd.Context()) {
				return constants.ErrNotAuthenticated
			}

			_, _ = os.Stdout.WriteString("Authenticated\n")

			return nil
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "get RESOURCE ID",
		Short: "Get a resource by id",
		Long:  "Retrieve a single resource representation from the hub",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			envelope, err := client.Get(cmd.Context(), args[1], args[0], version)
			if err != nil {
				return err
			}

			return writeEnvelope(envelope, func() error { return displayObjectTable(envelope) })
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version media type to request")

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var (
		version  string
		params   []string
		criteria string
		offset   int
		limit    int
		all      bool
		pageSize int
	)

	cmd := &cobra.Command{
		Use:     "list RESOURCE",
		Aliases: []string{"ls"},
		Short:   "List resources",
		Long:    "Retrieve a page of resources, or every page with --all",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseParams(params)
			if err != nil {
				return err
			}

			if criteria != "" {
				query.Set("criteria", criteria)
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			if all {
				return listAll(cmd.Context(), client, args[0], query, pageSize, version)
			}

			envelope, err := client.GetAll(cmd.Context(), args[0], query, offset, limit, version)
			if err != nil {
				return err
			}

			return writeEnvelope(envelope, func() error { return displayListTable(envelope) })
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version media type to request")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&criteria, "criteria", "", "JSON criteria filter")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of resources to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (0 lets the hub decide)")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&pageSize, "page-size", hub.DefaultPageSize, "page size used with --all")

	return cmd
}

func listAll(ctx context.Context, client hub.ResourceClient, resourceName string, query *hub.Query, pageSize int, version string) error {
	iterator := hub.NewPageIterator[json.RawMessage](ctx, client, resourceName, query, pageSize, version)

	items, err := iterator.All()
	if err != nil {
		return err
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode resources: %w", err)
	}

	envelope := &hub.Envelope{Data: string(data), Version: version, TotalCount: iterator.TotalCount()}

	return writeEnvelope(envelope, func() error { return displayListTable(envelope) })
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var (
		version string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "create RESOURCE",
		Short: "Create a resource",
		Long:  "POST a JSON document to the hub and print the stored representation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readDocument(file)
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			var created json.RawMessage

			err = client.Create(cmd.Context(), &document{name: args[0], version: version, body: body}, &created)
			if err != nil {
				return err
			}

			return writeRaw(created)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version media type of the document")
	cmd.Flags().StringVarP(&file, "file", "f", stdinPath, "JSON document, - for stdin")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var (
		version string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "update RESOURCE ID",
		Short: "Replace a resource",
		Long:  "PUT a JSON document to the hub and print the stored representation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readDocument(file)
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			var updated json.RawMessage

			model := &document{name: args[0], version: version, id: args[1], body: body}

			err = client.Update(cmd.Context(), model, args[1], &updated)
			if err != nil {
				return err
			}

			return writeRaw(updated)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version media type of the document")
	cmd.Flags().StringVarP(&file, "file", "f", stdinPath, "JSON document, - for stdin")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var (
		version string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "delete RESOURCE ID",
		Short: "Delete a resource",
		Long:  "Delete a resource from the hub",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				_, _ = fmt.Fprintf(os.Stdout, "Really delete %s/%s? (y/N): ", args[0], args[1])

				var response string

				_, _ = fmt.Scanln(&response)
				if response != "y" && response != "Y" {
					_, _ = os.Stdout.WriteString("Cancelled\n")

					return nil
				}
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Delete(cmd.Context(), nil, args[1], args[0], version, nil)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Deleted %s/%s\n", args[0], args[1])

			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version media type to request")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}

// NewVersionSupportedCommand creates the version-supported command.
func NewVersionSupportedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version-supported RESOURCE VERSION",
		Short: "Check whether the hub serves a resource version",
		Long:  "Probe the hub with a one-item list request for the given version media type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			supported, err := client.VersionSupported(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			result := struct {
				Resource  string `json:"resource"  yaml:"resource"`
				Version   string `json:"version"   yaml:"version"`
				Supported bool   `json:"supported" yaml:"supported"`
			}{args[0], args[1], supported}

			return writeOutput(result, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Resource", "Version", "Supported")
				_ = table.Append(result.Resource, result.Version, strconv.FormatBool(result.Supported))

				return renderTable(table)
			})
		},
	}
}

// envelopeOutput is the structured form of an envelope.
type envelopeOutput struct {
	Version           string      `json:"version,omitempty"            yaml:"version,omitempty"`
	TotalCount        int         `json:"total_count"                  yaml:"total_count"`
	ContentRestricted bool        `json:"content_restricted,omitempty" yaml:"content_restricted,omitempty"`
	Data              interface{} `json:"data"                         yaml:"data"`
}

func writeEnvelope(envelope *hub.Envelope, table func() error) error {
	return writeOutput(envelopeOutput{
		Version:           envelope.Version,
		TotalCount:        envelope.TotalCount,
		ContentRestricted: envelope.ContentRestricted,
		Data:              decodeData(envelope.Data),
	}, table)
}

func writeRaw(raw json.RawMessage) error {
	data := decodeData(string(raw))

	return writeOutput(data, func() error {
		object, ok := data.(map[string]interface{})
		if !ok {
			_, _ = fmt.Fprintln(os.Stdout, formatValue(data))

			return nil
		}

		return displayFieldsTable(object)
	})
}

func displayObjectTable(envelope *hub.Envelope) error {
	object, ok := decodeData(envelope.Data).(map[string]interface{})
	if !ok {
		_, _ = fmt.Fprintln(os.Stdout, envelope.Data)

		return nil
	}

	if envelope.Version != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Version: %s\n", envelope.Version)
	}

	if envelope.ContentRestricted {
		_, _ = os.Stdout.WriteString("Content restricted: some fields were withheld\n")
	}

	return displayFieldsTable(object)
}

func displayFieldsTable(object map[string]interface{}) error {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	for _, key := range keys {
		_ = table.Append(key, formatValue(object[key]))
	}

	return renderTable(table)
}

func displayListTable(envelope *hub.Envelope) error {
	items, ok := decodeData(envelope.Data).([]interface{})
	if !ok {
		_, _ = fmt.Fprintln(os.Stdout, envelope.Data)

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "ID", "Resource")

	for index, item := range items {
		id := NotAvailable

		if object, isObject := item.(map[string]interface{}); isObject {
			if value, hasID := object["id"].(string); hasID {
				id = value
			}
		}

		_ = table.Append(strconv.Itoa(index+1), id, formatValue(item))
	}

	err := renderTable(table)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Showing %d of %d\n", len(items), envelope.TotalCount)

	return nil
}

func renderTable(table *tablewriter.Table) error {
	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
