// Package logging provides a structured logger on top of Zap.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug) and numeric level encoding
//     (trace 10, debug 20, info 30, warn 40, error 50, fatal 60)
//   - Flexible call shapes: (msg), (ctx), (ctx, msg), and (err, ...) for Error
//   - Process identity (environment, service, version) on every record
//   - Child loggers with dot-joined module names and bound fields
//   - Path-based redaction applied while records are encoded
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	cfg.ServiceName = "payments"
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Close()
//
// Log with or without context:
//
//	logger.Info("started")
//	logger.Info(logging.Fields{"port": 8080}, "listening")
//	logger.Error(err, logging.Fields{"order": id}, "charge failed")
//
// Output:
//
//	{"level":30,"time":1732443330000,"msg":"listening","environment":"local",
//	 "service":"payments","version":"undefined-version","port":8080}
//
// Calls that match none of the shapes are dropped without a record.
//
// # Child Loggers
//
//	db := logger.Child("db")
//	db.Child("pool", logging.Fields{"size": 10}).Info("resized")
//	// module: "db.pool", size: 10
//
// Children copy their parent's bound context; siblings share nothing.
//
// # Redaction
//
// Paths address fields from the record root:
//
//	password                    top-level key
//	req.headers["x-api-key"]    bracket-quoted key
//	res.body.*["token"]         wildcard segment
//
// Matching values are replaced with "[Redacted]" whatever their type.
// Config.Redaction.Paths left nil selects DefaultRedactionPaths; any other
// value replaces the list. Fields passed by callers are never modified.
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger(nil)
//	tl.Info(logging.Fields{"key": "value"}, "test message")
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. SetLevel affects every logger derived
// from the same NewLogger call.
package logging
