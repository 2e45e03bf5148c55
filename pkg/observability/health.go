package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"

	// PathMetrics is the Prometheus scrape path.
	PathMetrics = "/metrics"
	// PathHealth is the liveness probe path.
	PathHealth = "/healthz"
	// PathReady is the readiness probe path.
	PathReady = "/readyz"
)

// ReadyCheck is a function that checks if a subsystem is ready.
// It returns nil if the check passes, or an error describing the failure.
type ReadyCheck func(ctx context.Context) error

// HealthHandler returns an [http.Handler] for liveness checks at /healthz.
// It always returns HTTP 200 with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		writeHealthJSON(rw, healthStatusOK, "")
	})
}

// ReadyHandler returns an [http.Handler] for readiness checks at /readyz.
// The first failing check answers HTTP 503 with its error in the body.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		rw.Header().Set("Content-Type", "application/json")

		for _, check := range checks {
			err := check(hr.Context())
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				writeHealthJSON(rw, healthStatusUnavailable, err.Error())

				return
			}
		}

		rw.WriteHeader(http.StatusOK)
		writeHealthJSON(rw, healthStatusOK, "")
	})
}

// NewMux routes the scrape and probe endpoints. A nil metrics handler leaves
// /metrics unrouted.
func NewMux(metrics http.Handler, checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()

	if metrics != nil {
		mux.Handle(PathMetrics, metrics)
	}

	mux.Handle(PathHealth, HealthHandler())
	mux.Handle(PathReady, ReadyHandler(checks...))

	return mux
}

func writeHealthJSON(w io.Writer, status, reason string) {
	body := map[string]string{"status": status}
	if reason != "" {
		body["reason"] = reason
	}

	data, err := json.Marshal(body)
	if err != nil {
		return
	}

	_, err = w.Write(data)
	if err != nil {
		return
	}
}
