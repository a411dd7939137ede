// Package logtail reads the end of marina's log file for the in-app log
// view.
//
// Read keeps a ring buffer of maxLines entries while scanning the file once,
// so memory stays proportional to the lines returned rather than the file
// size. A missing file is not an error: the view simply shows nothing until
// the first line is written.
//
// Tail and Parse understand the JSON lines written by internal/logging
// (ts, level, logger, msg plus structured fields); Format flattens an entry
// to a single line with fields sorted by key. Lines that are not JSON pass
// through untouched.
package logtail
