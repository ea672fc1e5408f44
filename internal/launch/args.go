// Package launch carries launch arguments from the OS to the editor UI.
// The first launch parks its file path in a Mailbox until the UI asks for
// it; later launches reach the running UI through a Relay.
package launch

import "strings"

// flagPrefix marks an argument as a command-line option rather than a path.
const flagPrefix = "-"

// IsFlag reports whether arg is flag-shaped and must never be treated as a
// file path.
func IsFlag(arg string) bool {
	return strings.HasPrefix(arg, flagPrefix)
}

// CandidatePath returns the file to open from a full process argument vector
// (program name first): the first user argument, if present, non-empty, and
// not flag-shaped. Arguments after the first are ignored.
func CandidatePath(args []string) (string, bool) {
	if len(args) < 2 {
		return "", false
	}

	arg := args[1]
	if arg == "" || IsFlag(arg) {
		return "", false
	}

	return arg, true
}
