// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Configuration loading with precedence: CLI > ENV > config file > defaults

package llm

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the gateway configuration from file
type Config struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Token    string `json:"token" yaml:"token"`
	Timeout  string `json:"timeout" yaml:"timeout"` // e.g., "120s"
}

// ConfigPaths returns the paths to check for config files in order
func ConfigPaths() []string {
	var paths []string

	// Current directory
	paths = append(paths, ".prototyp3d.yaml", ".prototyp3d.yml", ".prototyp3d.json")

	// XDG config directory
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths,
			filepath.Join(xdg, "prototyp3d", "config.yaml"),
			filepath.Join(xdg, "prototyp3d", "config.yml"),
			filepath.Join(xdg, "prototyp3d", "config.json"),
		)
	}

	// Home directory
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "prototyp3d", "config.yaml"),
			filepath.Join(home, ".config", "prototyp3d", "config.yml"),
			filepath.Join(home, ".prototyp3d.yaml"),
			filepath.Join(home, ".prototyp3d.yml"),
		)
	}

	return paths
}

// LoadConfig loads gateway configuration from file
func LoadConfig() (*Config, error) {
	for _, path := range ConfigPaths() {
		cfg, err := loadConfigFromPath(path)
		if err == nil {
			return cfg, nil
		}
		// Continue if file not found, return error for parse failures
		if !os.IsNotExist(err) && !strings.Contains(err.Error(), "no such file") {
			return nil, err
		}
	}
	return nil, nil // No config file found, not an error
}

func loadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// ResolveProviderConfig creates a ProviderConfig with proper precedence:
// CLI flags > Environment variables > Config file > Defaults (auto-select)
func ResolveProviderConfig(cliProvider, cliEndpoint, cliModel, cliToken string, cliTimeout time.Duration, verbose bool) *ProviderConfig {
	fileCfg, _ := LoadConfig()

	config := &ProviderConfig{
		Type:    "",
		Timeout: DefaultTimeout,
		Verbose: verbose,
	}

	// Apply config file values (lowest priority)
	if fileCfg != nil {
		if fileCfg.Provider != "" {
			config.Type = ProviderType(fileCfg.Provider)
		}
		if fileCfg.Model != "" {
			config.Model = fileCfg.Model
		}
		if fileCfg.Endpoint != "" {
			config.Endpoint = fileCfg.Endpoint
		}
		if fileCfg.Token != "" {
			config.Token = fileCfg.Token
		}
		if fileCfg.Timeout != "" {
			if d, err := time.ParseDuration(fileCfg.Timeout); err == nil {
				config.Timeout = d
			}
		}
	}

	// Apply environment variables (medium priority)
	if envProvider := os.Getenv("P3D_LLM_PROVIDER"); envProvider != "" {
		config.Type = ProviderType(envProvider)
	}
	if envModel := os.Getenv("P3D_LLM_MODEL"); envModel != "" {
		config.Model = envModel
	}
	if envEndpoint := os.Getenv("P3D_LLM_ENDPOINT"); envEndpoint != "" {
		config.Endpoint = envEndpoint
	}
	if envToken := os.Getenv("P3D_LLM_TOKEN"); envToken != "" {
		config.Token = envToken
	}
	if envTimeout := os.Getenv("P3D_LLM_TIMEOUT"); envTimeout != "" {
		if d, err := time.ParseDuration(envTimeout); err == nil {
			config.Timeout = d
		}
	}

	// Apply CLI flags (highest priority)
	if cliProvider != "" {
		config.Type = ProviderType(cliProvider)
	}
	if cliModel != "" {
		config.Model = cliModel
	}
	if cliEndpoint != "" {
		config.Endpoint = cliEndpoint
	}
	if cliToken != "" {
		config.Token = cliToken
	}
	if cliTimeout > 0 {
		config.Timeout = cliTimeout
	}

	// Auto-select provider if not explicitly set
	if config.Type == "" {
		config.Type = autoSelectProvider()
	}

	return config.WithDefaults()
}

// autoSelectProvider chooses the best available provider.
// Priority: anthropic > openai > ollama > mock
func autoSelectProvider() ProviderType {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return ProviderAnthropic
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	if IsOllamaAvailable() {
		return ProviderOllama
	}
	return ProviderMock
}

// GetProviderToken returns the appropriate token for a provider type
func GetProviderToken(providerType ProviderType, configToken string) string {
	if configToken != "" {
		return configToken
	}

	switch providerType {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOllama:
		return "" // No token needed
	default:
		return os.Getenv("P3D_LLM_TOKEN")
	}
}

// IsOllamaAvailable checks if Ollama is running locally
func IsOllamaAvailable() bool {
	endpoint := "http://localhost:11434/api/tags"
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host
		}
		endpoint = host + "/api/tags"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
