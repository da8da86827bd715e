// Package main hosts the ffkit CLI entrypoint and command graph.
//
// Commands are thin: they resolve configuration, build the logger, prober,
// runner and history store through commandContext, then hand off to the
// internal packages. Anything more than argument shaping and rendering
// belongs in internal/.
package main
