package collab

import "fmt"

type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityDanger
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityDanger:
		return "danger"
	default:
		return "unknown"
	}
}

// Notice is one ephemeral user-facing alert derived from a relay event.
type Notice struct {
	Severity Severity
	Text     string
}

// Notifier is the notification sink contract. Rendering and dismissal are
// entirely the implementation's concern; Clear drops all pending notices.
type Notifier interface {
	Notify(notice Notice)
	Clear()
}

// noticeFor classifies a relay event into at most one notice. The second
// return is false for events that produce none.
func noticeFor(t MsgType, client string) (Notice, bool) {
	switch t {
	case MsgClientsConnected:
		return Notice{Severity: SeveritySuccess, Text: fmt.Sprintf("%s connected", client)}, true
	case MsgClientsDisconnected:
		return Notice{Severity: SeverityWarning, Text: fmt.Sprintf("%s disconnected", client)}, true
	case MsgServerFileSaved:
		return Notice{Severity: SeveritySuccess, Text: "File saved!"}, true
	case MsgServerFileNotReady:
		return Notice{Severity: SeverityDanger, Text: "File not ready!"}, true
	case MsgServerFileNotSaved:
		return Notice{Severity: SeverityDanger, Text: "File not saved!"}, true
	case MsgConnNotReady:
		return Notice{Severity: SeverityDanger, Text: "Connection not ready!"}, true
	case MsgConnNotUnready:
		return Notice{Severity: SeverityDanger, Text: "Connection not unready!"}, true
	default:
		return Notice{}, false
	}
}
