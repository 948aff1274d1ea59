package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxdesk/voxdesk/internal/casefile"
	"github.com/voxdesk/voxdesk/internal/config"
)

// --- orders ---

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List recently finalized records",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(fmt.Sprintf("/orders?limit=%d", limit))
		if err != nil {
			return err
		}

		var entries []struct {
			ID        string         `json:"id"`
			Kind      string         `json:"kind"`
			CreatedAt string         `json:"created_at"`
			Fields    map[string]any `json:"fields"`
		}
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No orders yet.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("\n%s  %s (%s)\n", colorize(colorBold, e.ID), e.Kind, e.CreatedAt)
			for k, v := range e.Fields {
				fmt.Printf("  %s: %v\n", k, v)
			}
		}
		return nil
	},
}

func init() {
	ordersCmd.Flags().Int("limit", 20, "maximum number of orders to list")
}

// --- lookup ---

var lookupCmd = &cobra.Command{
	Use:   "lookup <query>",
	Short: "Search the loaded catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/lookup?q=%s&k=%d", url.QueryEscape(query), limit)
		resp, err := client.get(path)
		if err != nil {
			return err
		}
		if resp.StatusCode == 404 {
			resp.Body.Close()
			fmt.Println("No results found.")
			return nil
		}

		var results []struct {
			Name     string   `json:"name"`
			Body     string   `json:"body"`
			Tags     []string `json:"tags"`
			Price    float64  `json:"price"`
			Unit     string   `json:"unit"`
			Category string   `json:"category"`
			Score    int      `json:"score"`
		}
		if err := decodeJSON(resp, &results); err != nil {
			return err
		}

		for i, r := range results {
			fmt.Printf("\n%s [score: %d]\n", colorize(colorBold, fmt.Sprintf("%d. %s", i+1, r.Name)), r.Score)
			if r.Price > 0 {
				unit := r.Unit
				if unit == "" {
					unit = "each"
				}
				fmt.Printf("  Price: %.2f per %s\n", r.Price, unit)
			}
			if len(r.Tags) > 0 {
				fmt.Printf("  Tags: %s\n", strings.Join(r.Tags, ", "))
			}
			body := r.Body
			if len(body) > 300 {
				body = body[:300] + "..."
			}
			if body != "" {
				fmt.Printf("  %s\n", body)
			}
		}
		return nil
	},
}

func init() {
	lookupCmd.Flags().Int("limit", 3, "maximum number of results")
}

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Drive a capture session by hand",
}

var sessionOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a new capture session",
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaName, _ := cmd.Flags().GetString("schema")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var body any
		if schemaName != "" {
			body = map[string]string{"schema": schemaName}
		}
		resp, err := client.post("/sessions", body)
		if err != nil {
			return err
		}

		var view struct {
			ID      string   `json:"id"`
			Schema  string   `json:"schema"`
			Prompts []string `json:"prompts"`
		}
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}

		printSuccess("Opened %s session %s", view.Schema, view.ID)
		for _, p := range view.Prompts {
			printStep("ask for %s", p)
		}
		return nil
	},
}

var sessionSetCmd = &cobra.Command{
	Use:   "set <session-id> <field=value>...",
	Short: "Apply field values to a session record",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		fields := make(map[string]any, len(args)-1)
		for _, pair := range args[1:] {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("expected field=value, got %q", pair)
			}
			fields[k] = v
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/sessions/"+id+"/record", fields)
		if err != nil {
			return err
		}

		var view struct {
			Complete bool              `json:"complete"`
			Prompts  []string          `json:"prompts"`
			Rejected map[string]string `json:"rejected"`
		}
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}

		for field, reason := range view.Rejected {
			printWarning("%s rejected: %s", field, reason)
		}
		if view.Complete {
			printSuccess("Record complete, ready to finalize")
			return nil
		}
		for _, p := range view.Prompts {
			printStep("still need %s", p)
		}
		return nil
	},
}

var sessionFinalizeCmd = &cobra.Command{
	Use:   "finalize <session-id>",
	Short: "Persist a complete session record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/sessions/"+args[0]+"/finalize", nil)
		if err != nil {
			return err
		}

		var receipt struct {
			ID        string `json:"id"`
			Timestamp string `json:"timestamp"`
		}
		if err := decodeJSON(resp, &receipt); err != nil {
			return err
		}

		printSuccess("Saved record %s at %s", receipt.ID, receipt.Timestamp)
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the current state of a session record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/sessions/" + args[0])
		if err != nil {
			return err
		}

		var view any
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

func init() {
	sessionOpenCmd.Flags().String("schema", "", "schema preset (default from server config)")
	sessionCmd.AddCommand(sessionOpenCmd)
	sessionCmd.AddCommand(sessionSetCmd)
	sessionCmd.AddCommand(sessionFinalizeCmd)
	sessionCmd.AddCommand(sessionShowCmd)
}

// --- cases ---

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Manage fraud cases",
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fraud cases, optionally filtered by customer name",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/cases"
		if name != "" {
			path += "?name=" + url.QueryEscape(name)
		}
		resp, err := client.get(path)
		if err != nil {
			return err
		}

		var cases []struct {
			UserName           string `json:"user_name"`
			SecurityIdentifier string `json:"security_identifier"`
			Status             string `json:"status"`
			TransactionAmount  string `json:"transaction_amount"`
			TransactionName    string `json:"transaction_name"`
		}
		if err := decodeJSON(resp, &cases); err != nil {
			return err
		}

		if len(cases) == 0 {
			fmt.Println("No cases found.")
			return nil
		}

		for _, c := range cases {
			fmt.Printf("%s  %s  %s  %s at %s\n",
				colorize(colorBold, c.SecurityIdentifier), c.UserName, c.Status,
				c.TransactionAmount, c.TransactionName)
		}
		return nil
	},
}

var casesShowCmd = &cobra.Command{
	Use:   "show <security-identifier>",
	Short: "Show one fraud case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/cases/" + url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var c any
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	},
}

var casesResolveCmd = &cobra.Command{
	Use:   "resolve <security-identifier>",
	Short: "Record the outcome of a fraud case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		outcome, _ := cmd.Flags().GetString("outcome")
		if outcome == "" {
			return fmt.Errorf("--outcome is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{"status": status, "outcome": outcome}
		resp, err := client.post("/cases/"+url.PathEscape(args[0])+"/outcome", body)
		if err != nil {
			return err
		}

		var c struct {
			SecurityIdentifier string `json:"security_identifier"`
			Status             string `json:"status"`
		}
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}

		printSuccess("Case %s marked %s", c.SecurityIdentifier, c.Status)
		return nil
	},
}

var casesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample fraud cases into the local case store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := casefile.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening case store: %w", err)
		}
		defer store.Close()

		n, err := store.Seed(casefile.SampleCases())
		if err != nil {
			return err
		}

		printSuccess("Seeded %d case(s)", n)
		return nil
	},
}

func init() {
	casesListCmd.Flags().String("name", "", "filter by customer name (full or partial)")
	casesResolveCmd.Flags().String("status", casefile.StatusResolved, "resolved or escalated")
	casesResolveCmd.Flags().String("outcome", "", "free-text outcome note")
	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesShowCmd)
	casesCmd.AddCommand(casesResolveCmd)
	casesCmd.AddCommand(casesSeedCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
