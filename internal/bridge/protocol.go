// Package bridge connects the editor UI to the backend over a local
// websocket. The backend pushes named events to every connected UI client;
// the UI invokes backend commands and receives one result per invocation.
package bridge

// Frame types.
const (
	frameEvent  = "event"
	frameInvoke = "invoke"
	frameResult = "result"
)

// EventFocusWindow asks the UI shell to raise and focus the main window.
const EventFocusWindow = "focus-window"

// Command names the UI may invoke.
const (
	CmdGetStartupFile   = "get_startup_file"
	CmdWatchFile        = "watch_file"
	CmdUnwatchFile      = "unwatch_file"
	CmdRecentFiles      = "recent_files"
	CmdRecordRecentFile = "record_recent_file"
	CmdClearRecentFiles = "clear_recent_files"
	CmdExitApp          = "exit_app"
)

// eventFrame is pushed from the backend to the UI.
type eventFrame struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

// invokeFrame is a command invocation from the UI.
type invokeFrame struct {
	Type    string     `json:"type"`
	ID      string     `json:"id"`
	Command string     `json:"command"`
	Args    invokeArgs `json:"args"`
}

type invokeArgs struct {
	Path string `json:"path"`
}

// resultFrame answers one invokeFrame. Error is the string form of the
// failure; Result is null on error.
type resultFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}
