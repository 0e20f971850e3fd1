package snapfetch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the on-disk YAML layout. Durations are strings in Go
// duration syntax ("10s", "1m30s").
type fileConfig struct {
	Transfer struct {
		ConnectTimeout string `yaml:"connect_timeout"`
		RequestTimeout string `yaml:"request_timeout"`
		HTTPPolicy     string `yaml:"http_policy"`
		AuthType       string `yaml:"auth_type"`
	} `yaml:"transfer"`
	Staging struct {
		Root string `yaml:"root"`
	} `yaml:"staging"`
	Peers []struct {
		Id     string `yaml:"id"`
		Host   string `yaml:"host"`
		Port   int    `yaml:"port"`
		Scheme string `yaml:"scheme"`
	} `yaml:"peers"`
}

// LoadConfigFile reads a YAML configuration file and returns the transfer
// configuration together with the cluster membership it declares. Absent
// timeout fields are left zero and fall back to the documented defaults.
func LoadConfigFile(path string) (Config, []PeerNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, nil, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var config Config
	config.StagingRoot = fc.Staging.Root
	if config.ConnectTimeout, err = parseDuration(fc.Transfer.ConnectTimeout, "transfer.connect_timeout"); err != nil {
		return Config{}, nil, err
	}
	if config.RequestTimeout, err = parseDuration(fc.Transfer.RequestTimeout, "transfer.request_timeout"); err != nil {
		return Config{}, nil, err
	}
	if config.Policy, err = ParsePolicy(fc.Transfer.HTTPPolicy); err != nil {
		return Config{}, nil, err
	}
	if config.AuthType, err = ParseAuthType(fc.Transfer.AuthType); err != nil {
		return Config{}, nil, err
	}

	peers := make([]PeerNode, len(fc.Peers))
	for i, p := range fc.Peers {
		peers[i] = PeerNode{Id: p.Id, Host: p.Host, Port: p.Port, Scheme: p.Scheme}
	}
	return config, peers, nil
}

func parseDuration(s, key string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, s)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be non-negative: %q", key, s)
	}
	return d, nil
}
