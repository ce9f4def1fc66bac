// Package httplog provides echo middleware that logs one structured record
// per request through a logging.Logger.
//
// # Usage
//
//	e := echo.New()
//	e.Use(httplog.New(logger, httplog.Config{
//	    ResponseFilter: httplog.StatusFilter(4, 5),
//	}))
//
// Each record carries req {id, method, url, headers, remoteAddress, body?},
// res {statusCode, headers, body?} and responseTime in milliseconds. Header
// names are lower-cased, so redaction paths such as req.headers["x-api-key"]
// match whatever casing the client used.
//
// # Levels
//
// A handler error or a status of 500 and above logs "request errored" at
// error level. Statuses from 400 to 499 log "request completed" at warn,
// unlike pino-http, which keeps client errors at info; filter on level 40
// to find them. Everything else logs at info. The record bypasses log
// sampling, and with the logger's write queue enabled (the default) a slow
// sink never delays the response.
//
// # Response Bodies
//
// Without a ResponseFilter nothing is buffered. With one, a Capture is placed
// in front of the response writer; once the handler returns, the filter sees
// the finalized *CapturedResponse and, when it returns true, the body is
// parsed as JSON and attached. Bodies that fail to parse, overflow
// MaxBodyBytes or fail to buffer are left out of the record.
//
// Requests to IgnorePaths (by default the liveness and readiness probes) are
// passed through without a record.
package httplog
