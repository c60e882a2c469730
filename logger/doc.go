// Package logger provides structured logging for stageflow using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.New(&cfg, "translate").WithComponent("workflow")
//	log.Info("stage completed", logger.Fields(logger.FieldStageID, "to-french"))
package logger
