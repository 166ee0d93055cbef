package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hooklog/hooklog/internal/signature"
)

var (
	sendSecret  string
	sendURL     string
	sendPayload string
	sendBadSig  bool
)

var sendCmd = &cobra.Command{
	Use:   "send [file]",
	Short: "Sign and send a webhook event to the receiver",
	Long: `Sign a payload and POST it to the receiver's /webhook endpoint.

Reads the payload from the given file, or from stdin when no file is
given. Pass --bad-signature to send a deliberately wrong signature and
verify the receiver rejects it.`,
	Example: `  hookctl send payload.json --secret mysecret
  hookctl send -p '{"event_type":"payment.success","amount":100}'
  hookctl send payload.json --bad-signature`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendSecret, "secret", "s", "", "shared secret")
	sendCmd.Flags().StringVarP(&sendURL, "url", "u", "", "receiver base URL (default from config)")
	sendCmd.Flags().StringVarP(&sendPayload, "payload", "p", "", "payload as a literal string (overrides file/stdin)")
	sendCmd.Flags().BoolVar(&sendBadSig, "bad-signature", false, "send an invalid signature")
}

func runSend(cmd *cobra.Command, args []string) error {
	secret, err := resolveSecret(sendSecret)
	if err != nil {
		return err
	}

	payload, err := readPayload(args, sendPayload)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	baseURL := sendURL
	if baseURL == "" {
		baseURL = cfg.ReceiverURL
	}

	status, body, err := postWebhook(baseURL, payload, secret, sendBadSig)
	if err != nil {
		return err
	}

	fmt.Printf("HTTP %d\n%s\n", status, body)
	if status != http.StatusOK {
		return fmt.Errorf("receiver returned status %d", status)
	}
	return nil
}

func postWebhook(baseURL string, payload []byte, secret string, badSig bool) (int, string, error) {
	sig := signature.Sign(payload, []byte(secret))
	if badSig {
		sig = signature.Prefix + "0000000000000000000000000000000000000000000000000000000000000000"
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/webhook", bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.Header, sig)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, string(bytes.TrimSpace(body)), nil
}
