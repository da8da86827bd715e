// Package preflight provides readiness checks for the external binaries and
// filesystem paths ffkit depends on.
//
// The batch command runs RunAll before queueing any work so that a missing
// ffmpeg or an unwritable state directory fails fast instead of after the
// first probe. The doctor command renders the same checks as a table.
package preflight
