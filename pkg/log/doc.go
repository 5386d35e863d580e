// Package log provides named, leveled loggers for cardex services.
//
// Every component obtains its own logger with ForService(name); each line is
// prefixed with `[name>]` so output stays grep-friendly:
//
//	INFO [api>] listening on localhost:8080
//
// # Levels
//
// Infof, Warnf and Errorf always print. Debugf only prints when debug is
// enabled, either globally (SetGlobalDebug, wired to the --debug flag) or for
// a single service (EnableDebugFor).
//
// # Output
//
// Lines are encoded by zap's console encoder and written to a process-wide
// sink. SetOutput swaps the sink for every logger, including the ones created
// before the call; tests use it with a bytes.Buffer:
//
//	buf := &bytes.Buffer{}
//	log.SetOutput(buf)
//	log.ForService("search").Infof("hello")
//
// # Thread safety
//
// All exported functions are safe for concurrent use.
package log
