package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	_ "net/http/pprof"
	"io"
	"os"

	dig_container "github.com/KhanhMinhDz/CourseHub-Project/apps/api/di/dig"
	echoapi "github.com/KhanhMinhDz/CourseHub-Project/apps/api/echo"
	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db io.Closer,
		server echoapi.Server,
		shutdown chan os.Signal,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info("Application initializing : version " + conf.Build)

		if err := core.ParseEmailTemplates(conf, apiLogger); err != nil {
			apiLogger.Fatal("parsing email templates", err)
		}
		user.LoadCommonPasswords(apiLogger)

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Fatal("failed to close", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error("debug server closed", err)
			}
		}()

		// =========================================================================
		// Start API Service

		serverErrors := make(chan error, 1)
		go func() {
			apiLogger.Info("API listening on " + conf.Server.Address)
			serverErrors <- server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-serverErrors:
			apiLogger.Error("server error", err)

		case sig := <-shutdown:
			apiLogger.Info(sig.String() + ": Start shutdown...")

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Stop(ctx); err != nil {
				apiLogger.Error("could not stop server gracefully", err)
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
