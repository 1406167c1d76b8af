package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/config"
)

var configureStatus bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup for credentials (with OS keychain support)",
	Long: `Walks through ParityLens credential setup.

This will configure:
1. OpenAI API key (optional, for --narrative; stored in the OS keychain
   when one is available, otherwise in an owner-only credentials file)
2. GitHub token (optional, raises the fetch rate limit)

Neither credential is required for the core analysis.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&configureStatus, "status", false, "show where credentials resolve from and exit")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cm := config.NewCredentialManager()

	if configureStatus {
		src := cm.DescribeOpenAIKey()
		fmt.Printf("OpenAI API key: %s", src.Source)
		if src.Masked != "" {
			fmt.Printf(" (%s)", src.Masked)
		}
		if src.Source != "not set" && !src.Secure {
			fmt.Print("  [plaintext file]")
		}
		fmt.Println()
		return nil
	}

	fmt.Println("ParityLens credential setup")
	fmt.Println("───────────────────────────")
	fmt.Println()

	km := config.NewKeyringManager()
	if !km.IsAvailable() {
		fmt.Println("OS keychain not available (headless system or Linux without libsecret).")
		fmt.Println("Credentials will go to an owner-only file instead.")
		fmt.Println()
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Step 1/2: OpenAI API key (for 'plens analyze --narrative')")
	fmt.Print("Enter key, or press Enter to skip: ")
	apiKey, _ := reader.ReadString('\n')
	apiKey = strings.TrimSpace(apiKey)
	if apiKey != "" && !strings.HasPrefix(apiKey, "sk-") {
		return fmt.Errorf("invalid API key format (should start with sk-)")
	}

	fmt.Println()
	fmt.Println("Step 2/2: GitHub token (optional, raises the 'plens fetch' rate limit)")
	fmt.Print("Enter token, or press Enter to skip: ")
	token, _ := reader.ReadString('\n')
	token = strings.TrimSpace(token)

	if apiKey == "" && token == "" {
		fmt.Println("\nNothing to save.")
		return nil
	}

	if err := cm.SaveCredentials(apiKey, token); err != nil {
		return err
	}
	fmt.Println("\nCredentials saved.")
	return nil
}
