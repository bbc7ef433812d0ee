package config

import (
	"fmt"
	"io/ioutil"

	"github.com/cdmatta/pseudofsd/pseudofs"
	"gopkg.in/yaml.v2"
)

type PseudofsdConfig struct {
	Server BindAddressConfig `yaml:"server"`
	Tree   []NodeConfig      `yaml:"tree"`
}

type BindAddressConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// NodeConfig describes one entry of the initial tree. Kind is one of
// "file", "mountpoint" or "softlink" and defaults to "file"; Target is the
// absolute link destination and only meaningful for softlinks.
type NodeConfig struct {
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind,omitempty"`
	Target string `yaml:"target,omitempty"`
}

func (b *BindAddressConfig) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", b.Address, b.Port)
}

func (n *NodeConfig) GetKind() (pseudofs.Kind, error) {
	kind, err := pseudofs.ParseKind(n.Kind)
	if err != nil {
		return kind, fmt.Errorf("node '%s': %v", n.Path, err)
	}
	return kind, nil
}

func LoadConfig(filePath string) (*PseudofsdConfig, error) {
	cfg := &PseudofsdConfig{}

	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
