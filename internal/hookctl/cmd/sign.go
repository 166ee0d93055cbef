package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hooklog/hooklog/internal/signature"
)

var (
	signSecret  string
	signPayload string
	signCurl    bool
)

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Compute the webhook signature for a payload",
	Long: `Compute the HMAC-SHA256 signature for a payload body.

Reads the payload from the given file, or from stdin when no file is
given. The output is the exact value to place in the
X-Webhook-Signature request header.`,
	Example: `  hookctl sign payload.json --secret mysecret
  echo -n '{"event_type":"payment.success"}' | hookctl sign --secret mysecret
  hookctl sign payload.json --curl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVarP(&signSecret, "secret", "s", "", "shared secret")
	signCmd.Flags().StringVarP(&signPayload, "payload", "p", "", "payload as a literal string (overrides file/stdin)")
	signCmd.Flags().BoolVar(&signCurl, "curl", false, "print an example curl command")
}

func readPayload(args []string, literal string) ([]byte, error) {
	if literal != "" {
		return []byte(literal), nil
	}
	if len(args) == 1 {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

func runSign(cmd *cobra.Command, args []string) error {
	secret, err := resolveSecret(signSecret)
	if err != nil {
		return err
	}

	payload, err := readPayload(args, signPayload)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	sig := signature.Sign(payload, []byte(secret))
	fmt.Println(sig)

	if signCurl {
		fmt.Println()
		fmt.Println("Example request:")
		fmt.Printf("  curl -X POST %s/webhook \\\n", cfg.ReceiverURL)
		fmt.Println("    -H 'Content-Type: application/json' \\")
		fmt.Printf("    -H '%s: %s' \\\n", signature.Header, sig)
		fmt.Printf("    -d %q\n", string(payload))
	}

	return nil
}
