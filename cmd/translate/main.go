// Command translate runs a translation pipeline: English to French, to
// Spanish and back to English, one LLM-backed stage at a time.
//
// Configuration comes from cmd/translate/config.yml, an optional .env
// file and STAGEFLOW_* environment variables, e.g.
//
//	STAGEFLOW_LLM_BASE_URL=http://localhost:11434 STAGEFLOW_WORKFLOW_INPUT="Good morning" translate
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/stageflow/bootstrap"
	"github.com/kbukum/stageflow/config"
	_ "github.com/kbukum/stageflow/llm/ollama"
	_ "github.com/kbukum/stageflow/llm/openai"
	"github.com/kbukum/stageflow/version"
)

const serviceName = "translate"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "translate:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, config.WithEnvPrefix("STAGEFLOW")); err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().String()
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	p := newPipeline(app.Cfg, app.Logger, os.Stdout)
	for _, c := range p.components() {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}
	return app.RunTask(context.Background(), p.run)
}
