package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frontdeskhq/frontdesk/internal/config"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the receptionist a question",
	Long: `Ask the receptionist a question.

Examples:
  frontdesk ask "what are your hours"
  frontdesk ask --requester caller-42 "do you deliver"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requester, _ := cmd.Flags().GetString("requester")
		question := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"question": question}
		if requester != "" {
			body["requester_id"] = requester
		}

		resp, err := client.post(cmd.Context(), "/ask", body)
		if err != nil {
			return err
		}

		var result struct {
			RequesterID string `json:"requester_id"`
			Reply       struct {
				Text      string `json:"text"`
				Source    string `json:"source"`
				RequestID string `json:"request_id"`
			} `json:"reply"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Reply.Text)
		if result.Reply.RequestID != "" {
			printStatus("Escalated as", "%s", result.Reply.RequestID)
			printStatus("Check back with", "frontdesk followups %s", result.RequesterID)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("requester", "", "requester id (generated when omitted)")
}

// --- requests ---

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Manage escalated help requests",
}

type helpRequestView struct {
	ID               string `json:"id"`
	RequesterID      string `json:"requester_id"`
	Question         string `json:"question"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	TimeoutAt        string `json:"timeout_at"`
	SupervisorAnswer string `json:"supervisor_answer"`
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List help requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/requests?limit=%d", limit)
		if status != "" {
			path += "&status=" + url.QueryEscape(status)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var requests []helpRequestView
		if err := decodeJSON(resp, &requests); err != nil {
			return err
		}

		if len(requests) == 0 {
			fmt.Println("No help requests found.")
			return nil
		}

		for _, r := range requests {
			question := r.Question
			if len(question) > 60 {
				question = question[:60] + "..."
			}
			fmt.Printf("%s  %-10s  %s  %s\n",
				colorize(colorCyan, r.ID),
				r.Status,
				r.CreatedAt,
				question,
			)
		}
		return nil
	},
}

var requestsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single help request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/requests/"+args[0])
		if err != nil {
			return err
		}

		var request any
		if err := decodeJSON(resp, &request); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(request)
	},
}

var requestsResolveCmd = &cobra.Command{
	Use:   "resolve <id> <answer>",
	Short: "Answer a pending request as the supervisor",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		noTeach, _ := cmd.Flags().GetBool("no-teach")
		answer := strings.Join(args[1:], " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"answer":      answer,
			"teach_to_kb": !noTeach,
		}
		resp, err := client.post(cmd.Context(), "/requests/"+args[0]+"/resolve", body)
		if err != nil {
			return err
		}

		var result helpRequestView
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Resolved %s, follow-up queued for %s", result.ID, result.RequesterID)
		return nil
	},
}

var requestsUnresolveCmd = &cobra.Command{
	Use:   "unresolve <id>",
	Short: "Close a pending request without an answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"reason": reason}
		resp, err := client.post(cmd.Context(), "/requests/"+args[0]+"/unresolve", body)
		if err != nil {
			return err
		}

		var result helpRequestView
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Marked %s unresolved", result.ID)
		return nil
	},
}

var requestsReopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Reopen a resolved or unresolved request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/requests/"+args[0]+"/reopen", nil)
		if err != nil {
			return err
		}

		var result helpRequestView
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Reopened %s, new deadline %s", result.ID, result.TimeoutAt)
		return nil
	},
}

func init() {
	requestsListCmd.Flags().String("status", "", "filter by status (pending, resolved, unresolved)")
	requestsListCmd.Flags().Int("limit", 20, "maximum number of requests to list")
	requestsResolveCmd.Flags().Bool("no-teach", false, "do not save the answer to the knowledge base")
	requestsUnresolveCmd.Flags().String("reason", "", "reason for closing without an answer")

	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsShowCmd)
	requestsCmd.AddCommand(requestsResolveCmd)
	requestsCmd.AddCommand(requestsUnresolveCmd)
	requestsCmd.AddCommand(requestsReopenCmd)
}

// --- kb ---

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the taught knowledge base",
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List taught answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/knowledge")
		if err != nil {
			return err
		}

		var entries []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		}
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No taught answers yet.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s\n  %s\n", colorize(colorBold, e.Question), e.Answer)
		}
		return nil
	},
}

var kbAddCmd = &cobra.Command{
	Use:   "add <question> <answer>",
	Short: "Teach an answer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"question": args[0], "answer": args[1]}
		resp, err := client.put(cmd.Context(), "/knowledge", body)
		if err != nil {
			return err
		}

		var entry struct {
			Question string `json:"question"`
		}
		if err := decodeJSON(resp, &entry); err != nil {
			return err
		}

		printSuccess("Taught %q", entry.Question)
		return nil
	},
}

var kbRmCmd = &cobra.Command{
	Use:   "rm <question>",
	Short: "Forget a taught answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/knowledge?question="+url.QueryEscape(args[0]))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		printSuccess("Forgot %q", args[0])
		return nil
	},
}

func init() {
	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbAddCmd)
	kbCmd.AddCommand(kbRmCmd)
}

// --- notifications ---

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Inspect the follow-up queue",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued follow-up notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/notifications?pending=true"
		if all {
			path = "/notifications"
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var notifications []struct {
			ID          string `json:"id"`
			RequesterID string `json:"requester_id"`
			Answer      string `json:"answer"`
			Processed   bool   `json:"processed"`
		}
		if err := decodeJSON(resp, &notifications); err != nil {
			return err
		}

		if len(notifications) == 0 {
			fmt.Println("No notifications found.")
			return nil
		}

		for _, n := range notifications {
			state := "queued"
			if n.Processed {
				state = "delivered"
			}
			answer := n.Answer
			if len(answer) > 60 {
				answer = answer[:60] + "..."
			}
			fmt.Printf("%s  %-9s  %s  %s\n", colorize(colorCyan, n.ID), state, n.RequesterID, answer)
		}
		return nil
	},
}

var notificationsAckCmd = &cobra.Command{
	Use:   "ack <id>",
	Short: "Mark a notification as delivered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/notifications/"+args[0]+"/processed", nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		printSuccess("Marked %s delivered", args[0])
		return nil
	},
}

func init() {
	notificationsListCmd.Flags().Bool("all", false, "include delivered notifications")
	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsAckCmd)
}

// --- followups ---

var followupsCmd = &cobra.Command{
	Use:   "followups <requester-id>",
	Short: "Show undelivered follow-up answers for a requester",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/followups?requester_id=" + url.QueryEscape(args[0])
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var followups []struct {
			ID     string `json:"id"`
			Answer string `json:"answer"`
		}
		if err := decodeJSON(resp, &followups); err != nil {
			return err
		}

		if len(followups) == 0 {
			fmt.Println("No follow-ups waiting.")
			return nil
		}

		for _, f := range followups {
			fmt.Printf("%s  %s\n", colorize(colorCyan, f.ID), f.Answer)
		}
		return nil
	},
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
