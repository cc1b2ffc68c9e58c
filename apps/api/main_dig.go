package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof on the default mux

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	dig_container "github.com/trezcool/academia/apps/api/di/dig"
	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	appfs "github.com/trezcool/academia/fs"
)

// apiParams is everything the API process needs from the container.
type apiParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	DBLogger   core.Logger `name:"dbLogger"`
	DB         *sqlx.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Server     *echoapi.Server
}

func startWithDig() {
	if err := dig_container.New().Invoke(runAPI); err != nil {
		log.Fatal(err)
	}
}

func runAPI(p apiParams) {
	p.Logger.Info(fmt.Sprintf("starting %s API, build %q (%s)", p.Conf.AppName, p.Conf.Build, p.Conf.Env))
	defer p.Logger.Info("API stopped")
	defer func() {
		if err := p.DB.Close(); err != nil {
			p.DBLogger.Fatal("closing database", err)
		}
	}()

	core.InitValidators(p.Validate, p.Translator)
	user.InitValidators(p.Validate, p.Translator)
	core.ParseEmailTemplates(appfs.FS, p.Conf.Debug, p.Logger)

	go serveDebug(p.Conf, p.Logger)
	go p.Server.Start()

	awaitShutdown(p)
}

// serveDebug exposes /debug/pprof and /debug/vars (expvar) on the debug host.
func serveDebug(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
		logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
	}
}

// awaitShutdown blocks until the server fails or a shutdown signal arrives,
// then drains in-flight requests within the configured timeout.
func awaitShutdown(p apiParams) {
	select {
	case err := <-p.Server.Errors():
		p.Logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-p.Server.ShutdownSignal():
		p.Logger.Info(fmt.Sprintf("%v received, shutting down", sig))

		ctx, cancel := context.WithTimeout(context.Background(), p.Conf.Server.ShutdownTimeout)
		defer cancel()

		err := p.Server.Shutdown(ctx)
		if err == nil {
			return
		}
		p.Logger.Error(fmt.Sprintf("graceful shutdown failed: %v", err), err)
		if err = p.Server.Close(); err != nil {
			p.Logger.Fatal(fmt.Sprintf("forced shutdown failed: %v", err), err)
		}
	}
}
