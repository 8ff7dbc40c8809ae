// Package logger provides adapters for popular logger libraries to work with voron's Logger interface.
//
// The adapters allow you to use your existing logger with voron without writing boilerplate.
// Note that the standard library's slog.Logger already implements voron.Logger directly.
//
// Example with zap:
//
//	import (
//	    "voron"
//	    "voron/logger"
//	    "go.uber.org/zap"
//	)
//
//	func main() {
//	    zapLogger, _ := zap.NewProduction()
//
//	    db, err := voron.Open("data.db", voron.WithLogger(logger.NewZap(zapLogger)))
//	    if err != nil {
//	        panic(err)
//	    }
//	    defer db.Close()
//	}
package logger
