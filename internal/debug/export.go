package debug

import (
	"encoding/json"
)

// LastCallBanner prefixes the clipboard export of the last API call.
const LastCallBanner = "=== Last API Call ==="

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// Notifier shows a transient user notification.
type Notifier interface {
	Notify(message string)
}

// CopyLastCall exports the last recorded API call to the clipboard, prefixed
// with a fixed banner. An empty slot notifies and writes nothing.
func CopyLastCall(state *State, clip Clipboard, notify Notifier) {
	rec := state.LastCall()
	if rec == nil {
		notify.Notify("Nothing to copy")
		return
	}
	pretty, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		notify.Notify("Copy failed")
		return
	}
	writeToClipboard(clip, notify, LastCallBanner+"\n"+string(pretty))
}

// CopyModelList exports the cached raw model list to the clipboard.
func CopyModelList(state *State, clip Clipboard, notify Notifier) {
	raw := state.RawModelList()
	if len(raw) == 0 {
		notify.Notify("Nothing to copy")
		return
	}
	writeToClipboard(clip, notify, prettyJSON(raw))
}

func writeToClipboard(clip Clipboard, notify Notifier, text string) {
	if err := clip.WriteText(text); err != nil {
		notify.Notify("Copy failed")
		return
	}
	notify.Notify("Copied to clipboard")
}
