package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	natsclient "github.com/hooklog/hooklog/internal/messaging/nats"
	"github.com/hooklog/hooklog/internal/processor/dlq"
)

var (
	dlqNATSURL string
	dlqLimit   int
	dlqJSON    bool
	dlqForce   bool
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect the dead-letter queue",
	Long:  `Inspect and manage messages the processor permanently rejected.`,
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-lettered messages",
	Example: `  hookctl dlq list
  hookctl dlq list --limit 20 --json`,
	RunE: runDLQList,
}

var dlqStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dead-letter queue counters",
	RunE:  runDLQStats,
}

var dlqPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all dead-lettered messages",
	RunE:  runDLQPurge,
}

func init() {
	rootCmd.AddCommand(dlqCmd)
	dlqCmd.AddCommand(dlqListCmd, dlqStatsCmd, dlqPurgeCmd)

	dlqCmd.PersistentFlags().StringVar(&dlqNATSURL, "nats-url", "", "NATS server URL (default from config)")
	dlqListCmd.Flags().IntVar(&dlqLimit, "limit", 50, "maximum messages to list")
	dlqListCmd.Flags().BoolVar(&dlqJSON, "json", false, "print raw JSON")
	dlqPurgeCmd.Flags().BoolVarP(&dlqForce, "force", "f", false, "skip confirmation")
}

func dlqConnect(ctx context.Context) (*dlq.JetStreamQueue, *natsclient.JetStreamClient, error) {
	url := dlqNATSURL
	if url == "" {
		url = cfg.NATSURL
	}

	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = url
	natsCfg.Name = "hookctl"

	js, err := natsclient.NewJetStreamClient(natsCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	q, err := dlq.NewJetStreamQueue(ctx, js)
	if err != nil {
		js.Close()
		return nil, nil, err
	}

	return q, js, nil
}

func runDLQList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	q, js, err := dlqConnect(ctx)
	if err != nil {
		return err
	}
	defer js.Close()

	msgs, err := q.List(ctx, dlqLimit)
	if err != nil {
		return err
	}

	if dlqJSON {
		data, err := json.MarshalIndent(msgs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(msgs) == 0 {
		fmt.Println("Dead-letter queue is empty")
		return nil
	}

	for i, m := range msgs {
		fmt.Printf("%d. [%s] %s\n", i+1, m.Timestamp.Format(time.RFC3339), m.Reason)
		fmt.Printf("   error: %s\n", m.Error)
		if len(m.Message) > 0 {
			fmt.Printf("   message: %s\n", truncate(string(m.Message), 200))
		}
	}
	fmt.Printf("\n%d message(s)\n", len(msgs))
	return nil
}

func runDLQStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	q, js, err := dlqConnect(ctx)
	if err != nil {
		return err
	}
	defer js.Close()

	data, err := json.MarshalIndent(q.Stats(ctx), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runDLQPurge(cmd *cobra.Command, args []string) error {
	if !dlqForce {
		fmt.Print("Purge ALL dead-lettered messages? [y/N]: ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	q, js, err := dlqConnect(ctx)
	if err != nil {
		return err
	}
	defer js.Close()

	if err := q.Purge(ctx); err != nil {
		return err
	}
	fmt.Println("Dead-letter queue purged")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
