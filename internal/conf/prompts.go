package conf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	Classify ClassifyPrompts `yaml:"classify"`
	Alert    AlertPrompts    `yaml:"alert"`
	Digest   DigestPrompts   `yaml:"digest"`
}

// ClassifyPrompts contains the priority classification prompt
type ClassifyPrompts struct {
	SystemPrompt string `yaml:"system_prompt"`
}

// AlertPrompts contains alert formatting configuration
type AlertPrompts struct {
	Marker string `yaml:"marker"`
}

// DigestPrompts contains digest prompts and formatting
type DigestPrompts struct {
	Marker        string `yaml:"marker"`
	SummaryPrompt string `yaml:"summary_prompt"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"./configs/prompts.yaml",
			"/etc/whatsapp-monitor/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
		if wd, err := os.Getwd(); err == nil {
			paths = append(paths, filepath.Join(wd, "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		// Return default config if no file found
		log.Println("[Config] No prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	log.Printf("[Config] Loading prompts from: %s", loadedPath)

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Classify.SystemPrompt == "" {
		c.Classify.SystemPrompt = defaults.Classify.SystemPrompt
	}
	if c.Alert.Marker == "" {
		c.Alert.Marker = defaults.Alert.Marker
	}
	if c.Digest.Marker == "" {
		c.Digest.Marker = defaults.Digest.Marker
	}
	if c.Digest.SummaryPrompt == "" {
		c.Digest.SummaryPrompt = defaults.Digest.SummaryPrompt
	}
}

// DefaultPromptsConfig returns the default prompts configuration.
// The classification criteria text is the contract with the decision engine
// and is passed through to it unchanged.
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Classify: ClassifyPrompts{
			SystemPrompt: `You are a message priority monitor that assesses the priority of chat messages.

To prioritise the message based on urgency and importance, consider the following criteria:
* Is the message from a close contact (someone that I message or reply to regularly)?
* Does the message contain time-sensitive information (e.g., event reminders, urgent requests) that needs to be addressed in the next 48 hours?
* Does the message require an immediate response?
* Was the message sent in reply to a previous message of mine, or mention me, and so will require a response?

For each criteria above assign a 1 or 0 score and then sum the scores. If the total score is 2 or more then classify the message as high priority, otherwise classify it as low priority.

Reply with exactly two lines:
SCORE: <the summed score>
REASON: <one brief sentence explaining why>`,
		},
		Alert: AlertPrompts{
			Marker: "**** Whatsapp priority alert ****",
		},
		Digest: DigestPrompts{
			Marker: "**** Whatsapp daily digest ****",
			SummaryPrompt: `You are a message digest agent that should generate a summary of low priority information collected today. Generate a summary (not just a direct recounting of) of all low priority information and conversations given to you. Note that sometimes to understand a message you may need the provided chat context - do not just summarise individual messages if they make no sense on their own.

Output the summary text directly, with no preamble.`,
		},
	}
}
