package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Provider is one layer of configuration; Manager.Load applies them in
// order, each one overriding keys set by the providers before it.
type Provider interface {
	Apply(k *koanf.Koanf) error
}

type defaultProvider struct{}

// NewDefaultProvider loads the compiled-in baseline from Default().
func NewDefaultProvider() Provider {
	return defaultProvider{}
}

func (defaultProvider) Apply(k *koanf.Koanf) error {
	return k.Load(structs.Provider(Default(), "koanf"), nil)
}

type envProvider struct {
	prefix string
}

// NewEnvProvider reads process environment variables prefixed with prefix
// (default "MINIFLOW_"), mapping MINIFLOW_SERVER_PORT to server.port and so
// on.
func NewEnvProvider(prefix string) Provider {
	if prefix == "" {
		prefix = "MINIFLOW_"
	}
	return envProvider{prefix: prefix}
}

func (p envProvider) Apply(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: p.prefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, p.prefix))
			key = strings.ReplaceAll(key, "_", ".")
			return key, value
		},
	}), nil)
}

type fileProvider struct {
	path string
}

// NewFileProvider reads a YAML configuration file at path, overriding
// defaults but yielding to environment variables in the usual layering
// order (default < file < env).
func NewFileProvider(path string) Provider {
	return fileProvider{path: path}
}

func (p fileProvider) Apply(k *koanf.Koanf) error {
	return k.Load(file.Provider(p.path), yaml.Parser())
}
