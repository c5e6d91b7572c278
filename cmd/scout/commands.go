package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talentscout/scout/internal/config"
	"github.com/talentscout/scout/internal/schema"
)

var sessionFlag string

const greeting = "Hello! I'm the TalentScout Hiring Assistant. I'll ask you a few questions " +
	"to get to know you and your tech stack. Let's start: what is your full name?"

var exitWords = map[string]bool{
	"exit": true, "quit": true, "bye": true, "goodbye": true,
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive interview session",
	Long: `Start an interactive interview session against the running server.

Earlier messages of the session are replayed first so the conversation
can be picked up where it left off. Type "exit" to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(sessionFlag)
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), client, os.Stdin)
	},
}

func runChat(ctx context.Context, client *apiClient, input *os.File) error {
	resp, err := client.get(ctx, "/v1/history")
	if err != nil {
		return err
	}
	var history struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := decodeJSON(resp, &history); err != nil {
		return err
	}

	if len(history.Messages) == 0 {
		printAssistant(greeting)
	} else {
		for _, m := range history.Messages {
			if m.Role == "user" {
				fmt.Printf("%s %s\n", colorize(colorBold, "You:"), m.Content)
			} else {
				printAssistant(m.Content)
			}
		}
	}

	scanner := bufio.NewScanner(input)
	for {
		fmt.Print(colorize(colorBold, "You: "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitWords[strings.ToLower(line)] {
			printAssistant("Thank you for your time! The TalentScout team will be in touch. Goodbye!")
			return nil
		}

		resp, err := client.post(ctx, "/v1/turn", map[string]string{"message": line})
		if err != nil {
			return err
		}
		var turn struct {
			Reply string `json:"reply"`
		}
		if err := decodeJSON(resp, &turn); err != nil {
			printError("%v", err)
			continue
		}
		printAssistant(turn.Reply)
	}
	return scanner.Err()
}

func printAssistant(text string) {
	fmt.Printf("%s %s\n", colorize(colorCyan, "Scout:"), text)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the collected candidate profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(sessionFlag)
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/profile")
		if err != nil {
			return err
		}

		var profile struct {
			Fields    map[string]string `json:"fields"`
			Collected int               `json:"collected"`
			Total     int               `json:"total"`
			Complete  bool              `json:"complete"`
		}
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		for _, f := range schema.Fields {
			value, ok := profile.Fields[string(f)]
			if !ok {
				value = colorize(colorYellow, "(not collected)")
			}
			fmt.Printf("  %s %s\n", colorize(colorBold, schema.Label(f)+":"), value)
		}
		fmt.Println()
		if profile.Complete {
			printSuccess("Profile complete (%d/%d)", profile.Collected, profile.Total)
		} else {
			printStatus("Progress", "%d/%d fields collected", profile.Collected, profile.Total)
		}
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the conversation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(sessionFlag)
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/history")
		if err != nil {
			return err
		}

		var history struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Stats struct {
				Total     int `json:"total"`
				User      int `json:"user"`
				Assistant int `json:"assistant"`
			} `json:"stats"`
		}
		if err := decodeJSON(resp, &history); err != nil {
			return err
		}

		if len(history.Messages) == 0 {
			fmt.Println("No conversation yet.")
			return nil
		}

		for _, m := range history.Messages {
			label := "Scout:"
			color := colorCyan
			if m.Role == "user" {
				label = "You:"
				color = colorBold
			}
			fmt.Printf("%s %s\n", colorize(color, label), m.Content)
		}
		fmt.Println()
		printStatus("Messages", "%d total (%d candidate, %d assistant)",
			history.Stats.Total, history.Stats.User, history.Stats.Assistant)
		return nil
	},
}

// --- reset ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase the session's conversation and collected profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete the session's conversation and profile. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient(sessionFlag)
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/reset", nil)
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Session reset")
		return nil
	},
}

// --- resume ---

var resumeCmd = &cobra.Command{
	Use:   "resume <file.pdf>",
	Short: "Upload a PDF resume to pre-fill the candidate profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading resume: %w", err)
		}

		client, err := newAPIClient(sessionFlag)
		if err != nil {
			return err
		}

		resp, err := client.postRaw(cmd.Context(), "/v1/resume", "application/pdf", data)
		if err != nil {
			return err
		}

		var result struct {
			Fields    map[string]string `json:"fields"`
			Extracted int               `json:"extracted"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Extracted == 0 {
			printWarning("Resume stored, but no profile fields could be extracted")
			return nil
		}
		for _, f := range schema.Fields {
			if v, ok := result.Fields[string(f)]; ok {
				fmt.Printf("  %s %s\n", colorize(colorBold, schema.Label(f)+":"), v)
			}
		}
		printSuccess("Pre-filled %d profile fields from %s", result.Extracted, path)
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

		for _, k := range config.ShowAll(cfg) {
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
	for _, c := range []*cobra.Command{chatCmd, profileCmd, historyCmd, resetCmd, resumeCmd} {
		c.Flags().StringVar(&sessionFlag, "session", "", "session identifier (default: shared session)")
	}
	resetCmd.Flags().Bool("confirm", false, "confirm session reset")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
