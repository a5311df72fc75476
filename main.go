package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/errortracking"

	"github.com/meridianhq/tenantgate/internal/config"
	"github.com/meridianhq/tenantgate/internal/logging"
	"github.com/meridianhq/tenantgate/metrics"
)

// VERSION stores the information about the semantic version of application
var VERSION = "dev"

// REVISION stores the information about the git revision of application
var REVISION = "HEAD"

func initErrorReporting(sentryDSN, sentryEnvironment string) {
	errortracking.Initialize(
		errortracking.WithSentryDSN(sentryDSN),
		errortracking.WithVersion(fmt.Sprintf("%s-%s", VERSION, REVISION)),
		errortracking.WithLoggerName("tenantgate"),
		errortracking.WithSentryEnvironment(sentryEnvironment))
}

func appMain() {
	cfg, err := config.LoadConfig()
	if err != nil {
		// A gateway with a broken resolution setup must not take traffic.
		log.WithError(err).Fatal("invalid configuration, refusing to start")
	}

	if cfg.General.ShowVersion {
		fmt.Fprintf(os.Stdout, "%s\n", VERSION)
		os.Exit(0)
	}

	if err := logging.ConfigureLogging(cfg.Log.Format, cfg.Log.Verbose); err != nil {
		log.WithError(err).Fatal("failed to initialize logging")
	}

	if cfg.Sentry.DSN != "" {
		initErrorReporting(cfg.Sentry.DSN, cfg.Sentry.Environment)
	}

	log.WithFields(log.Fields{
		"version":  VERSION,
		"revision": REVISION,
	}).Info("tenantgate starting")

	if err := runApp(cfg); err != nil {
		log.WithError(err).Fatal("tenantgate failed")
	}
}

func main() {
	log.SetOutput(os.Stderr)

	metrics.Register(prometheus.DefaultRegisterer)

	appMain()
}
