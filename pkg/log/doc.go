/*
Package log provides structured logging for curfew built on zerolog.

A single global logger is initialized once at startup and shared by all
components. Child loggers carry contextual fields:

	logger := log.WithComponent("drainer")
	logger.Info().Str("guest", "101").Msg("shutdown issued")

Console output is the default since curfew normally runs from cron and its
output lands in mail or a journal; JSON output is available for log shippers.
*/
package log
