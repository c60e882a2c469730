// Package config loads stageflow binaries' configuration.
//
// LoadConfig reads a config.yml found next to the binary's cmd directory
// (or an explicit file), an optional .env file, and environment variables,
// then decodes the result into a struct with mapstructure tags:
//
//	var cfg AppConfig
//	if err := config.LoadConfig("translate", &cfg); err != nil { ... }
//
// Environment variables override file values. With
// WithEnvPrefix("STAGEFLOW"), STAGEFLOW_LLM_BASE_URL sets llm.base_url.
// Only keys declared by the target struct are bound; other variables are
// ignored.
package config
