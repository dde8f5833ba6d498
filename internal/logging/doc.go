// Package logging provides structured logging with size-based file
// rotation for the search API. Logs go to stderr by default; when a file
// path is configured, log lines are additionally written to a rotating
// file under ~/.searchcore/logs/ for the `searchcore logs` viewer.
package logging
