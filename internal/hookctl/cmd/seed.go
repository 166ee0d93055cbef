package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
)

var (
	seedCount  int
	seedSecret string
	seedURL    string
	seedDelay  time.Duration
)

var seedEventTypes = []string{
	"payment.success",
	"payment.failed",
	"payment.refunded",
	"user.created",
	"user.updated",
	"subscription.renewed",
	"subscription.cancelled",
	"invoice.paid",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send a batch of fake webhook events",
	Long: `Generate fake webhook events and send them to the receiver.

Useful for exercising the full pipeline locally: each event gets a
random event type and a plausible payload, is signed with the shared
secret, and is POSTed to /webhook.`,
	Example: `  hookctl seed --count 50 --secret mysecret
  hookctl seed -n 10 --delay 200ms`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 10, "number of events to send")
	seedCmd.Flags().StringVarP(&seedSecret, "secret", "s", "", "shared secret")
	seedCmd.Flags().StringVarP(&seedURL, "url", "u", "", "receiver base URL (default from config)")
	seedCmd.Flags().DurationVar(&seedDelay, "delay", 0, "delay between events")
}

func fakeEvent(eventType string) map[string]interface{} {
	event := map[string]interface{}{
		"event_type": eventType,
		"event_id":   gofakeit.UUID(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	switch eventType {
	case "payment.success", "payment.failed", "payment.refunded", "invoice.paid":
		event["amount"] = gofakeit.Price(1, 5000)
		event["currency"] = gofakeit.CurrencyShort()
		event["customer_id"] = fmt.Sprintf("cus_%s", gofakeit.LetterN(14))
	case "user.created", "user.updated":
		event["user_id"] = gofakeit.UUID()
		event["email"] = gofakeit.Email()
		event["name"] = gofakeit.Name()
	default:
		event["subscription_id"] = fmt.Sprintf("sub_%s", gofakeit.LetterN(14))
		event["plan"] = gofakeit.RandomString([]string{"starter", "pro", "enterprise"})
	}

	return event
}

func runSeed(cmd *cobra.Command, args []string) error {
	secret, err := resolveSecret(seedSecret)
	if err != nil {
		return err
	}

	baseURL := seedURL
	if baseURL == "" {
		baseURL = cfg.ReceiverURL
	}

	var sent, failed int
	for i := 0; i < seedCount; i++ {
		eventType := gofakeit.RandomString(seedEventTypes)
		payload, err := json.Marshal(fakeEvent(eventType))
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		status, body, err := postWebhook(baseURL, payload, secret, false)
		if err != nil {
			fmt.Printf("  [%d/%d] %s: %v\n", i+1, seedCount, eventType, err)
			failed++
			continue
		}
		if status != http.StatusOK {
			fmt.Printf("  [%d/%d] %s: HTTP %d %s\n", i+1, seedCount, eventType, status, body)
			failed++
			continue
		}

		fmt.Printf("  [%d/%d] %s: ok\n", i+1, seedCount, eventType)
		sent++

		if seedDelay > 0 && i < seedCount-1 {
			time.Sleep(seedDelay)
		}
	}

	fmt.Printf("\nSent %d event(s), %d failed\n", sent, failed)
	if failed > 0 {
		return fmt.Errorf("%d event(s) failed", failed)
	}
	return nil
}
