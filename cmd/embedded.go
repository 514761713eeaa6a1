package main

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed configs/*.yaml
var configsFS embed.FS

// defaultPreset is used when no config file is given or found.
const defaultPreset = "openai"

// getEmbeddedConfig returns the raw bytes of an embedded config file.
// name can be with or without the .yaml extension.
func getEmbeddedConfig(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".yaml") {
		name += ".yaml"
	}
	data, err := configsFS.ReadFile(path.Join("configs", name))
	if err != nil {
		return nil, fmt.Errorf("no embedded preset %q", strings.TrimSuffix(name, ".yaml"))
	}
	return data, nil
}

// listEmbeddedConfigs returns the names of all embedded config files (without extension).
func listEmbeddedConfigs() ([]string, error) {
	entries, err := configsFS.ReadDir("configs")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded configs: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}
