package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SaveCredentials records a credential for this agent in the relay section
// of the config file, keeping every other key.
func SaveCredentials(path string, creds Credentials) error {
	if path == "" {
		return fmt.Errorf("config path not set")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if config == nil {
		config = make(map[string]interface{})
	}

	relay, ok := config["relay"].(map[string]interface{})
	if !ok {
		relay = make(map[string]interface{})
		config["relay"] = relay
	}

	relay["client_id"] = creds.ClientID
	if creds.Username != "" {
		relay["username"] = creds.Username
	}
	relay["password"] = creds.Password

	updatedData, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	comment := "# Agent bound successfully on " + time.Now().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(path, []byte(comment+string(updatedData)), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
