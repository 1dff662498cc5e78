package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogEvents               bool   `yaml:"logevents"`
	PageLogDirectory        string `yaml:"pagelogdirectory"`
	DirectoryForOldPageLogs string `yaml:"directoryforoldpagelogs"`
	EventLogDirectory       string `yaml:"eventlogdirectory"`
}

// GetConfig gets the config from the given file.
func GetConfig(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		em := fmt.Sprintf("[-] Cannot open config file: %s\n", err.Error())
		slog.Error(em)
		os.Exit(1)
	}

	config, errParse := getConfigFromReader(file)

	if errParse != nil {
		return nil, errParse
	}

	return config, nil
}

// getConfigFromReader gets the config from the given reader.
func getConfigFromReader(configReader io.Reader) (*Config, error) {

	data, errRead := io.ReadAll(configReader)
	if errRead != nil {
		em := fmt.Sprintf("[-] Error reading config file: %s\n", errRead.Error())
		slog.Error(em)
		return nil, errRead
	}

	config, parseError := parseConfigFromBytes(data)
	if parseError != nil {
		em := fmt.Sprintf("[-] Not a valid config file: %s\n", parseError.Error())
		slog.Error(em)
		return nil, parseError
	}

	return config, nil
}

func parseConfigFromBytes(data []byte) (*Config, error) {
	var config Config
	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
