// Package bootstrap runs a stageflow binary: it validates the typed
// config, builds the logger, starts the registered components, runs one
// task and shuts everything down.
//
//	app, err := bootstrap.NewApp(&cfg)
//	_ = app.RegisterComponent(tracing)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return translate(ctx, app)
//	})
//
// SIGINT and SIGTERM cancel the task's context; shutdown then runs with
// its own timeout.
package bootstrap
