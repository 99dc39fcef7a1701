// SPDX-License-Identifier: MIT
package transport

import (
	applog "verb/internal/log"
	"verb/internal/params"
)

// LoggingTransport writes parameter updates to the debug log. It stands in
// for the websocket server when remote control is disabled.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debug("Transport: using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the update.
func (lt *LoggingTransport) Send(data any) error {
	if !applog.Enabled(applog.LevelDebug) {
		return nil
	}
	switch v := data.(type) {
	case []params.Param:
		for _, p := range v {
			applog.Debugf("Transport: %s = %.3f (%s)", p.Name, p.Value, p.Text)
		}
	default:
		applog.Debugf("Transport: %+v", v)
	}
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
