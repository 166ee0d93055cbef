package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/hooklog/hooklog/internal/models"
)

var (
	logsEventType string
	logsLimit     int
	logsCursor    string
	logsURL       string
	logsJSON      bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query processed webhook logs",
	Example: `  hookctl logs
  hookctl logs --event-type payment.success --limit 20
  hookctl logs --cursor eyJyZWNlaXZlZF9hdCI...`,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsEventType, "event-type", "t", "", "filter by event type")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 50, "maximum records to return")
	logsCmd.Flags().StringVar(&logsCursor, "cursor", "", "pagination cursor from a previous page")
	logsCmd.Flags().StringVarP(&logsURL, "url", "u", "", "logs API base URL (default from config)")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "print raw JSON")
}

type logsPage struct {
	Logs       []models.LogRecord `json:"logs"`
	Total      int                `json:"total"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func runLogs(cmd *cobra.Command, args []string) error {
	baseURL := logsURL
	if baseURL == "" {
		baseURL = cfg.LogsURL
	}

	params := url.Values{}
	if logsEventType != "" {
		params.Set("event_type", logsEventType)
	}
	if logsLimit > 0 {
		params.Set("limit", fmt.Sprintf("%d", logsLimit))
	}
	if logsCursor != "" {
		params.Set("cursor", logsCursor)
	}

	endpoint := baseURL + "/logs"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("query logs API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logs API returned status %d: %s", resp.StatusCode, string(body))
	}

	if logsJSON {
		fmt.Println(string(body))
		return nil
	}

	var page logsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	if page.Total == 0 {
		fmt.Println("No logs found")
		return nil
	}

	for _, rec := range page.Logs {
		processed := "-"
		if rec.ProcessedAt != nil {
			processed = rec.ProcessedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-24s  received=%s  processed=%s\n",
			rec.LogID, rec.EventType,
			rec.ReceivedAt.Format(time.RFC3339), processed)
	}
	fmt.Printf("\n%d record(s)\n", page.Total)
	if page.NextCursor != "" {
		fmt.Printf("next page: hookctl logs --cursor %s\n", page.NextCursor)
	}
	return nil
}
