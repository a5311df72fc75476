package ratelimiter

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/gitlab-org/labkit/log"

	"github.com/meridianhq/tenantgate/internal/host"
	"github.com/meridianhq/tenantgate/internal/httperrors"
)

// SourceIPLimiter returns middleware for rate-limiting clients based on
// their IP. It expects the real client IP in RemoteAddr, so it must sit
// behind handlers.ProxyHeaders when the gateway runs behind a load balancer.
func (rl *RateLimiter) SourceIPLimiter(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sourceIP := host.RemoteIP(r)

		if !rl.SourceIPAllowed(sourceIP) {
			rl.logSourceIP(r, sourceIP)
			rl.sourceIPBlockedCount.WithLabelValues("true").Inc()
			httperrors.Serve429(w)

			return
		}

		handler.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) logSourceIP(r *http.Request, sourceIP string) {
	log.WithFields(logrus.Fields{
		"handler":                       "source_ip_rate_limiter",
		"correlation_id":                correlation.ExtractFromContext(r.Context()),
		"req_host":                      r.Host,
		"req_path":                      r.URL.Path,
		"remote_addr":                   r.RemoteAddr,
		"source_ip":                     sourceIP,
		"x_forwarded_for":               r.Header.Get("X-Forwarded-For"),
		"rate_limiter_limit_per_second": rl.sourceIPLimitPerSecond,
		"rate_limiter_burst_size":       rl.sourceIPBurstSize,
	}).Info("source IP hit rate limit")
}
