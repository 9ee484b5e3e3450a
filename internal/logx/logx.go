// Package logx centralizes structured logging on top of arbor, the way
// the ternarybob pack's internal/logger wraps it for its own service.
// The compiler driver and runtime scheduler both log through this
// package rather than touching arbor directly, so the writer/level
// configuration lives in exactly one place.
package logx

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	global   arbor.ILogger
	globalMu sync.RWMutex
)

// Get returns the process-wide logger, falling back to a plain console
// logger at info level if Init hasn't run yet — the runtime packages
// (sched, mailbox, abi) may log without any Init call, as their tests do.
func Get() arbor.ILogger {
	globalMu.RLock()
	if global != nil {
		defer globalMu.RUnlock()
		return global
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05.000",
			OutputType: models.OutputFormatLogfmt,
		}).WithLevelFromString("info")
	}
	return global
}

// Init configures the global logger from level/format settings loaded by
// internal/config, and stores it as the process-wide logger returned by
// subsequent Get calls.
func Init(level, format string) arbor.ILogger {
	outputType := models.OutputFormatJSON
	if format == "text" {
		outputType = models.OutputFormatLogfmt
	}
	logger := arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: "15:04:05.000",
		OutputType: outputType,
	}).WithLevelFromString(level)

	globalMu.Lock()
	global = logger
	globalMu.Unlock()
	return logger
}

