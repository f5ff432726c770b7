/* Logger.go: logrus setup for the daemon and its tools
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// LogLevels are the accepted log level names, least verbose first
var LogLevels = []string{"panic", "fatal", "error", "warn", "info", "debug", "trace"}

// LogFormats are the accepted log formats
var LogFormats = []string{"text", "json"}

// NewLogger creates a logger writing to w at the named level, in the named format
func NewLogger(w io.Writer, level, format string) (*log.Logger, error) {
	lv, e := log.ParseLevel(level)
	if e != nil {
		return nil, e
	}
	l := log.New()
	l.SetOutput(w)
	l.SetLevel(lv)
	switch format {
	case "", "text":
		l.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format: %q", format)
	}
	return l, nil
}
