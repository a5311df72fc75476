package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/correlation"

	"github.com/meridianhq/tenantgate/internal/config"
	"github.com/meridianhq/tenantgate/internal/customheaders"
	"github.com/meridianhq/tenantgate/internal/directory/cache"
	"github.com/meridianhq/tenantgate/internal/directory/client"
	"github.com/meridianhq/tenantgate/internal/errortracking"
	"github.com/meridianhq/tenantgate/internal/httperrors"
	"github.com/meridianhq/tenantgate/internal/logging"
	"github.com/meridianhq/tenantgate/internal/middleware"
	"github.com/meridianhq/tenantgate/internal/netutil"
	"github.com/meridianhq/tenantgate/internal/ratelimiter"
	"github.com/meridianhq/tenantgate/internal/resolver"
	"github.com/meridianhq/tenantgate/metrics"
)

var corsHandler = cors.New(cors.Options{AllowedMethods: []string{http.MethodGet, http.MethodHead}})

type theApp struct {
	config *config.Config
	cache  *cache.Cache

	servers []*http.Server
	mu      sync.Mutex
}

func (a *theApp) buildHandlerPipeline() (http.Handler, error) {
	downstream, err := url.Parse(a.config.General.DownstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parsing downstream URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(downstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		httperrors.Serve502WithRequest(w, r, "downstream request failed", err)
	}

	var handler http.Handler = proxy

	if a.config.General.DevBypass {
		log.Warn("tenant resolution bypassed, requests reach the downstream unresolved")
	} else {
		res := resolver.New(a.config, a.cache)
		handler = middleware.NewResolution(res, &a.config.General).Handler(handler)
	}

	if a.config.RateLimit.SourceIPLimitPerSecond > 0 {
		rl := ratelimiter.New(
			ratelimiter.WithSourceIPLimitPerSecond(a.config.RateLimit.SourceIPLimitPerSecond),
			ratelimiter.WithSourceIPBurstSize(a.config.RateLimit.SourceIPBurst),
		)
		handler = rl.SourceIPLimiter(handler)
	}

	if len(a.config.General.CustomHeaders) > 0 {
		headers, err := customheaders.ParseHeaderString(a.config.General.CustomHeaders)
		if err != nil {
			return nil, fmt.Errorf("parsing custom headers: %w", err)
		}

		handler = customheaders.NewMiddleware(handler, headers)
	}

	if a.config.General.DisableCrossOriginRequests {
		handler = corsHandler.Handler(handler)
	}

	handler, err = logging.BasicAccessLogger(handler, a.config.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("configuring access logger: %w", err)
	}

	// ProxyHeaders restores the client address from X-Forwarded-For, the
	// rate limiter and access log depend on it. Only safe behind a proxy
	// that sets the headers.
	if a.config.General.Proxied {
		handler = ghandlers.ProxyHeaders(handler)
	}

	correlationOpts := []correlation.InboundHandlerOption{
		correlation.WithSetResponseHeader(),
	}
	if a.config.General.PropagateCorrelationID {
		correlationOpts = append(correlationOpts, correlation.WithPropagation())
	}

	handler = correlation.InjectCorrelationID(handler, correlationOpts...)

	return handler, nil
}

// adminHandler serves the operational endpoints on the metrics listener,
// away from tenant traffic.
func (a *theApp) adminHandler() http.Handler {
	router := mux.NewRouter()

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)

	router.HandleFunc("/cache/clear", func(w http.ResponseWriter, r *http.Request) {
		a.cache.Clear()
		log.Info("resolution cache cleared")
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	return router
}

func (a *theApp) listenMetrics(wg *sync.WaitGroup) error {
	addr := a.config.General.MetricsAddress
	if addr == "" {
		return nil
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on metrics address %q: %w", addr, err)
	}

	log.WithField("listener", addr).Info("metrics listener set up")

	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := a.serve(l, a.adminHandler(), false); err != nil && err != http.ErrServerClosed {
			errortracking.CaptureErrWithStackTrace(err)
			log.WithError(err).Fatal("metrics listener failed")
		}
	}()

	return nil
}

// Run starts all configured listeners and blocks until they stop. A SIGINT
// or SIGTERM triggers a graceful shutdown bounded by
// server-shutdown-timeout.
func (a *theApp) Run() error {
	handler, err := a.buildHandlerPipeline()
	if err != nil {
		return err
	}

	var limiter *netutil.Limiter
	if a.config.General.MaxConns > 0 {
		limiter = netutil.NewLimiterWithMetrics(
			a.config.General.MaxConns,
			metrics.LimitListenerMaxConns,
			metrics.LimitListenerConcurrentConns,
			metrics.LimitListenerWaitingConns,
		)
	}

	var wg sync.WaitGroup

	for _, addr := range a.config.ListenHTTPStrings.Split() {
		if err := a.listen(&wg, addr, handler, limiter, false); err != nil {
			return err
		}
	}

	for _, addr := range a.config.ListenProxyv2Strings.Split() {
		if err := a.listen(&wg, addr, handler, limiter, true); err != nil {
			return err
		}
	}

	if err := a.listenMetrics(&wg); err != nil {
		return err
	}

	a.awaitShutdown()
	wg.Wait()

	return nil
}

func (a *theApp) listen(wg *sync.WaitGroup, addr string, handler http.Handler, limiter *netutil.Limiter, proxyv2 bool) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", addr, err)
	}

	if limiter != nil {
		l = netutil.SharedLimitListener(l, limiter)
	}

	log.WithFields(log.Fields{
		"listener": addr,
		"proxyv2":  proxyv2,
	}).Info("listener set up")

	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := a.listenAndServe(l, handler, proxyv2); err != nil && err != http.ErrServerClosed {
			errortracking.CaptureErrWithStackTrace(err)
			log.WithError(err).Fatal("listener failed")
		}
	}()

	return nil
}

func (a *theApp) awaitShutdown() {
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.config.ServerShutdownTimeout)
	defer cancel()

	a.mu.Lock()
	servers := a.servers
	a.mu.Unlock()

	for _, server := range servers {
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
	}
}

func runApp(cfg *config.Config) error {
	directory, err := client.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating directory client: %w", err)
	}

	a := &theApp{
		config: cfg,
		cache:  cache.NewCache(directory, &cfg.Cache),
	}

	return a.Run()
}
