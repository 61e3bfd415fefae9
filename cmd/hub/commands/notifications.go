package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/internal/notify"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Checkpoint backends of the watch command.
const (
	CheckpointMemory = "memory"
	CheckpointNATS   = "nats"
	CheckpointRedis  = "redis"
)

// parseChangeOperation maps the publish --operation flag.
func parseChangeOperation(s string) (hub.ChangeOperation, error) {
	switch strings.ToLower(s) {
	case "create", hub.OperationCreated:
		return hub.ChangeCreate, nil
	case "update", hub.OperationReplaced:
		return hub.ChangeUpdate, nil
	case "delete", hub.OperationDeleted:
		return hub.ChangeDelete, nil
	default:
		return 0, fmt.Errorf("%w: %q", constants.ErrUnknownOperation, s)
	}
}

// NewPublishCommand creates the publish command.
func NewPublishCommand() *cobra.Command {
	var (
		version   string
		file      string
		id        string
		operation string
	)

	cmd := &cobra.Command{
		Use:   "publish RESOURCE",
		Short: "Publish a change notification",
		Long:  "Publish a create, update or delete notification for a resource document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := parseChangeOperation(operation)
			if err != nil {
				return err
			}

			model := &document{name: args[0], version: version, id: id}

			if op != hub.ChangeDelete && file == "" {
				file = stdinPath
			}

			if file != "" {
				model.body, err = readDocument(file)
				if err != nil {
					return err
				}
			}

			notification, err := hub.NewChangeNotification(model, op)
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Publish(cmd.Context(), notification)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Published %s %s/%s\n",
				notification.Operation, notification.Resource.Name, notification.Resource.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version media type of the document")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON document, - for stdin (default stdin, optional for delete)")
	cmd.Flags().StringVar(&id, "id", "", "resource id (defaults to the document's id)")
	cmd.Flags().StringVar(&operation, "operation", "create", "change operation (create, update, delete)")

	return cmd
}

// NewConsumeCommand creates the consume command.
func NewConsumeCommand() *cobra.Command {
	var (
		lastProcessedID string
		maxMessages     int
	)

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume change notifications",
		Long:  "Fetch the next change notifications, acknowledging everything up to --last-processed-id",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			notifications, err := client.Consume(cmd.Context(), lastProcessedID, maxMessages)
			if err != nil {
				return err
			}

			return writeOutput(notifications, func() error { return displayNotificationsTable(notifications) })
		},
	}

	cmd.Flags().StringVar(&lastProcessedID, "last-processed-id", "", "id of the last handled notification")
	cmd.Flags().IntVar(&maxMessages, "max", 0, "maximum number of notifications (0 uses the configured default)")

	return cmd
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var (
		checkpoint    string
		natsURL       string
		bucket        string
		redisAddr     string
		forward       bool
		subjectPrefix string
		interval      time.Duration
		maxMessages   int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow change notifications",
		Long: `Poll the hub for change notifications until interrupted.

The last handled notification id is kept in memory, a NATS key-value bucket
or Redis. With --forward every notification is republished on NATS.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var nc *nats.Conn

			if checkpoint == CheckpointNATS || forward {
				var err error

				nc, err = nats.Connect(natsURL, nats.Name("hub watch"))
				if err != nil {
					return fmt.Errorf("failed to connect to NATS: %w", err)
				}
				defer nc.Close()
			}

			store, closeStore, err := openCheckpointStore(ctx, checkpoint, nc, bucket, redisAddr)
			if err != nil {
				return err
			}
			defer closeStore()

			handlers := []notify.Handler{printNotification}

			if forward {
				sink, sinkErr := notify.NewNATSSink(nc, subjectPrefix)
				if sinkErr != nil {
					return sinkErr
				}

				handlers = append(handlers, sink.Handle)
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			poller, err := notify.NewPoller(client, store, notify.Handlers(handlers...),
				notify.WithMaxMessages(maxMessages),
				notify.WithInterval(interval),
				notify.WithLogger(newLogger(viper.GetString(KeyLogLevel), viper.GetBool(KeyVerbose))),
			)
			if err != nil {
				return err
			}

			err = poller.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}

			return err
		},
	}

	cmd.Flags().StringVar(&checkpoint, "checkpoint", CheckpointMemory, "checkpoint backend (memory, nats, redis)")
	cmd.Flags().StringVar(&natsURL, "nats-url", nats.DefaultURL, "NATS server URL")
	cmd.Flags().StringVar(&bucket, "bucket", constants.DefaultCheckpointBucket, "NATS key-value bucket for checkpoints")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "Redis address for checkpoints")
	cmd.Flags().BoolVar(&forward, "forward", false, "republish notifications on NATS")
	cmd.Flags().StringVar(&subjectPrefix, "subject-prefix", constants.DefaultSubjectPrefix, "NATS subject prefix for --forward")
	cmd.Flags().DurationVar(&interval, "interval", constants.DefaultPollInterval, "pause after an empty batch")
	cmd.Flags().IntVar(&maxMessages, "max", 0, "notifications per batch (0 uses the configured default)")

	return cmd
}

func openCheckpointStore(ctx context.Context, backend string, nc *nats.Conn, bucket, redisAddr string) (notify.CheckpointStore, func(), error) {
	noop := func() {}

	switch backend {
	case CheckpointMemory, "":
		return notify.NewMemoryStore(""), noop, nil
	case CheckpointNATS:
		store, err := notify.NewNATSKVStore(ctx, nc, bucket, constants.DefaultCheckpointKey)
		if err != nil {
			return nil, noop, err
		}

		return store, noop, nil
	case CheckpointRedis:
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

		store, err := notify.NewRedisStore(rdb)
		if err != nil {
			_ = rdb.Close()

			return nil, noop, err
		}

		return store, func() { _ = rdb.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("%w: %s", constants.ErrUnknownCheckpoint, backend)
	}
}

func printNotification(_ context.Context, n hub.ChangeNotification) error {
	_, err := fmt.Fprintf(os.Stdout, "%d\t%s\t%s\t%s/%s\n",
		n.ID, n.Published.Format(time.RFC3339), n.Operation, n.Resource.Name, n.Resource.ID)

	return err
}

func displayNotificationsTable(notifications []hub.ChangeNotification) error {
	if len(notifications) == 0 {
		_, _ = os.Stdout.WriteString("No change notifications\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Published", "Operation", "Resource", "Resource ID", "Content Type")

	for _, n := range notifications {
		_ = table.Append(
			strconv.Itoa(n.ID),
			n.Published.Format(time.RFC3339),
			n.Operation,
			n.Resource.Name,
			formatValue(n.Resource.ID),
			formatValue(n.ContentType),
		)
	}

	return renderTable(table)
}
