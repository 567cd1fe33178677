package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EternisAI/print-relay/internal/agent"
	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/spf13/viper"
)

// runPair asks the broker's admin API for a pairing code and stores it as
// this agent's credential, so the next start binds without manual entry.
func runPair(args []string) error {
	fs := flag.NewFlagSet("pair", flag.ExitOnError)
	server := fs.String("server", "", "Broker admin URL (e.g., http://server:8770)")
	apiKey := fs.String("api-key", "", "Admin API key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *server == "" {
		return fmt.Errorf("--server is required")
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimSuffix(*server, "/")+"/admin/auth-codes", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pairing failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var codeResp dto.AuthCodeResponse
	if err := json.Unmarshal(body, &codeResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	configPath := viper.ConfigFileUsed()
	creds := agent.Credentials{Password: codeResp.Code, ClientID: config.Relay.ClientID}
	if err := agent.SaveCredentials(configPath, creds); err != nil {
		return err
	}

	fmt.Println("Pairing code stored!")
	fmt.Printf("  Config:     %s\n", configPath)
	fmt.Printf("  Expires at: %s\n", codeResp.ExpiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Start the agent before the code expires to bind it.")

	return nil
}
