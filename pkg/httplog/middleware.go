// pkg/httplog/middleware.go
package httplog

import (
	"errors"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/logkit/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// DefaultIgnorePaths are never logged.
var DefaultIgnorePaths = []string{"/healthcheck/liveness", "/healthcheck/readiness"}

// DefaultMaxBodyBytes bounds request snapshots and response captures.
const DefaultMaxBodyBytes = 1 << 20

// LoggerKey is the echo context key holding the request-scoped *logging.Logger.
const LoggerKey = "httplog.logger"

// Record messages.
const (
	MsgCompleted = "request completed"
	MsgErrored   = "request errored"
)

// Config configures the request logging middleware.
type Config struct {
	// Skipper defines a function to skip middleware.
	Skipper middleware.Skipper

	// IgnorePaths are request paths that produce no record. Nil selects
	// DefaultIgnorePaths; an empty slice logs every path.
	IgnorePaths []string

	// ResponseFilter enables response capture. Its result decides whether
	// the body is attached as res.body. Nil disables capture entirely.
	ResponseFilter ResponseFilterFunc

	// CustomProps adds fields to the record after the handler has run.
	CustomProps func(c echo.Context) logging.Fields

	// GenRequestID is used when the request carries no X-Request-ID.
	GenRequestID func() string

	// MaxBodyBytes bounds the request body snapshot and the response capture.
	// Zero selects DefaultMaxBodyBytes; negative means unbounded.
	MaxBodyBytes int

	// Metrics is optional.
	Metrics *Metrics
}

func (cfg Config) withDefaults() Config {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}
	if cfg.IgnorePaths == nil {
		cfg.IgnorePaths = DefaultIgnorePaths
	}
	if cfg.GenRequestID == nil {
		cfg.GenRequestID = uuid.NewString
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return cfg
}

// New returns an echo middleware that emits exactly one record per request.
func New(logger *logging.Logger, cfg Config) echo.MiddlewareFunc {
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg = cfg.withDefaults()

	ignored := make(map[string]struct{}, len(cfg.IgnorePaths))
	for _, p := range cfg.IgnorePaths {
		ignored[p] = struct{}{}
	}

	d := &diagnostics{
		logger:  logger.Child("httplog"),
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		metrics: cfg.Metrics,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if _, skip := ignored[req.URL.Path]; skip || cfg.Skipper(c) {
				cfg.Metrics.request("skipped")
				return next(c)
			}

			start := time.Now()
			res := c.Response()

			id := requestID(req, res, cfg.GenRequestID)
			ctx := logging.WithRequestID(req.Context(), id)
			reqLogger := logger.WithContext(ctx)
			req = req.WithContext(logging.WithLogger(ctx, reqLogger))
			c.SetRequest(req)
			c.Set(LoggerKey, reqLogger)

			reqBody, _ := snapshotBody(req, cfg.MaxBodyBytes)

			var capture *Capture
			if cfg.ResponseFilter != nil {
				capture = NewCapture(res.Writer, cfg.MaxBodyBytes)
				res.Writer = capture
			}

			err := next(c)
			if err != nil {
				// Commit the error response while the capture is still installed.
				c.Error(err)
			}

			fields := logging.Fields{
				"req": serializeRequest(req, id, reqBody),
			}
			resFields := serializeResponse(res.Status, res.Header())

			if capture != nil {
				res.Writer = capture.Unwrap()
				captured := capture.Finish(req.URL.Path, req.Method, res.Status, res.Header())
				c.Set(CapturedResponseKey, captured)
				if body, ok := d.decide(cfg.ResponseFilter, capture, captured); ok {
					resFields["body"] = body
				}
			}

			fields["res"] = resFields
			fields["responseTime"] = time.Since(start).Milliseconds()

			if cfg.CustomProps != nil {
				for k, v := range cfg.CustomProps(c) {
					fields[k] = v
				}
			}

			// Sampling would drop repeated identical messages.
			out := reqLogger.Unsampled()
			switch {
			case err != nil || res.Status >= http.StatusInternalServerError:
				out.Error(err, fields, MsgErrored)
			case res.Status >= http.StatusBadRequest:
				out.Warn(fields, MsgCompleted)
			default:
				out.Info(fields, MsgCompleted)
			}
			cfg.Metrics.request("logged")

			return err
		}
	}
}

// requestID prefers the incoming header, then one set by an earlier
// middleware, then a generated one. The response header is always set.
func requestID(req *http.Request, res *echo.Response, gen func() string) string {
	id := req.Header.Get(echo.HeaderXRequestID)
	if logging.ValidateRequestID(id) != nil {
		id = res.Header().Get(echo.HeaderXRequestID)
	}
	if logging.ValidateRequestID(id) != nil {
		id = gen()
	}
	res.Header().Set(echo.HeaderXRequestID, id)
	return id
}

// diagnostics reports capture problems without flooding the log.
type diagnostics struct {
	logger  *logging.Logger
	limiter *rate.Limiter
	metrics *Metrics
}

// decide runs the filter and returns the parsed body when it should be attached.
func (d *diagnostics) decide(filter ResponseFilterFunc, capture *Capture, captured *CapturedResponse) (any, bool) {
	if err := capture.Err(); err != nil {
		reason := "panic"
		if errors.Is(err, ErrBodyTooLarge) {
			reason = "overflow"
		}
		d.metrics.captureFailure(reason)
		if d.limiter.Allow() {
			d.logger.Debug(logging.Fields{
				"path":     captured.Path,
				"method":   captured.Method,
				"buffered": capture.Len(),
				"error":    err.Error(),
			}, "response capture failed")
		}
	}
	d.metrics.captured(capture.Len())

	if !filter(captured) {
		d.metrics.body("filtered")
		return nil, false
	}
	if capture.Err() != nil {
		d.metrics.body("unparsable")
		return nil, false
	}
	body, ok := parseJSON(captured.Body)
	if !ok {
		d.metrics.body("unparsable")
		return nil, false
	}
	d.metrics.body("attached")
	return body, true
}
