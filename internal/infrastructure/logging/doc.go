// Package logging wraps log/slog into the one Logger type the rest of
// IronPin passes around.
//
// Output is JSON by default (text for development), filtered by level,
// and stamped with the service name and build version on every line.
// Configured through the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Packages that log accept their own minimal Logger interface and get
// handed a *logging.Logger (or a child made with With) at wiring time,
// so nothing below cmd imports this package.
package logging
