package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/stageflow/logger"
)

// FileSystem abstracts the file lookups of the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem is the FileSystem backed by the process's working directory.
type OSFileSystem struct{}

// Exists reports whether path can be stat'ed.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads path into the process environment. Variables that are
// already set win.
func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the config and .env files of a binary.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles are the files LoadConfig reads. Empty means none.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles keeps explicit paths from lc and searches for the rest.
func (r *Resolver) ResolveFiles(service string, lc LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(configCandidates(service))
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first(envCandidates(service))
	}
	return files
}

func (r *Resolver) first(candidates []string) string {
	for _, path := range candidates {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// configCandidates lists config.yml locations, nearest cmd directory first,
// so a binary finds its file whether it runs from the repo root or from a
// package directory.
func configCandidates(service string) []string {
	var paths []string
	for _, up := range []string{".", "..", "../.."} {
		paths = append(paths, filepath.Join(up, "cmd", service, "config.yml"))
	}
	return append(paths,
		filepath.Join("config", "config.yml"),
		"config.yml",
	)
}

func envCandidates(service string) []string {
	var paths []string
	for _, name := range []string{".env." + service, ".env"} {
		for _, dir := range []string{filepath.Join("cmd", service), ".", ".."} {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// LoaderConfig holds the loader's dependencies and explicit file paths.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvPrefix limits environment overrides to variables starting with
	// EnvPrefix + "_". Empty binds every matching variable.
	EnvPrefix string
	Logger    *logger.Logger
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the OS file system.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets the config file instead of searching for one.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets the .env file instead of searching for one.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the prefix environment overrides must carry.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = strings.TrimSuffix(prefix, "_") }
}

// WithLoaderLogger sets the logger that reports skipped files.
func WithLoaderLogger(log *logger.Logger) LoaderOption {
	return func(lc *LoaderConfig) { lc.Logger = log }
}

// LoadConfig decodes the configuration of service into cfg, which must be a
// pointer to a struct with mapstructure tags. Sources, lowest precedence
// first: the config file, then the .env file and the process environment.
// A missing file is not an error; a malformed one is.
func LoadConfig(service string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}, Logger: logger.Nop()}
	for _, opt := range opts {
		opt(&lc)
	}
	log := lc.Logger.WithComponent("config")

	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(service, lc)
	v := viper.New()

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: reading %s: %w", files.ConfigFile, err)
		}
		log.Debug("config file loaded", logger.Fields("file", files.ConfigFile))
	} else if files.ConfigFile != "" {
		log.Warn("config file not found", logger.Fields("file", files.ConfigFile))
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.WithError(err).Warn("env file skipped", logger.Fields("file", files.EnvFile))
		}
	}

	bindEnv(v, structKeys(reflect.TypeOf(cfg), ""), lc.EnvPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: decoding %s: %w", service, err)
	}
	return nil
}

// bindEnv sets every key whose underscore form matches a variable in
// environ. LLM_BASE_URL matches llm.base_url.
func bindEnv(v *viper.Viper, keys []string, prefix string, environ []string) {
	byEnv := make(map[string][]string, len(keys))
	for _, key := range keys {
		name := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		byEnv[name] = append(byEnv[name], key)
	}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			if name, ok = strings.CutPrefix(name, prefix+"_"); !ok {
				continue
			}
		}
		for _, key := range byEnv[strings.ToUpper(name)] {
			v.Set(key, value)
		}
	}
}

var timeType = reflect.TypeOf(time.Time{})

// structKeys lists the dotted mapstructure keys of the leaf fields of t.
// Squashed embeddings share their parent's prefix; maps are skipped.
func structKeys(t reflect.Type, prefix string) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if strings.Contains(opts, "squash") {
			keys = append(keys, structKeys(f.Type, prefix)...)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch {
		case ft.Kind() == reflect.Map:
		case ft.Kind() == reflect.Struct && ft != timeType:
			keys = append(keys, structKeys(ft, prefix+name+".")...)
		default:
			keys = append(keys, prefix+name)
		}
	}
	return keys
}
