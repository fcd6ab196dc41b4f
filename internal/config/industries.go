package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Industries maps an industry name to its ticker basket
type Industries map[string][]string

type industriesFile struct {
	Industries Industries `yaml:"industries"`
}

// LoadIndustries reads the industry ticker lists from a YAML file
func LoadIndustries(path string) (Industries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading industries file: %w", err)
	}

	var f industriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	out := make(Industries, len(f.Industries))
	for name, tickers := range f.Industries {
		out[strings.ToLower(name)] = ParseTickers(strings.Join(tickers, ","))
	}
	return out, nil
}

// Tickers returns the basket of an industry
func (i Industries) Tickers(industry string) ([]string, error) {
	tickers, ok := i[strings.ToLower(industry)]
	if !ok {
		return nil, fmt.Errorf("unknown industry %q (known: %s)", industry, strings.Join(i.Names(), ", "))
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("industry %q has no tickers", industry)
	}
	return tickers, nil
}

// Names returns the industry names in alphabetical order
func (i Industries) Names() []string {
	names := make([]string, 0, len(i))
	for n := range i {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
