// Package ui holds the small pieces of plain terminal output the CLI prints
// outside the dashboard: a progress spinner for long waits and the status
// symbols shared by command output.
//
// Colors are ANSI codes so they degrade on limited terminals, and all
// styling goes through Lip Gloss, so --no-color applies here too.
package ui
