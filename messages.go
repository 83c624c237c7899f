package collab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

type MsgType string

// Message types sent by the client to the relay.
const (
	MsgConnSave         MsgType = "conn-save"
	MsgConnTextChange   MsgType = "conn-text-change"
	MsgConnCursorChange MsgType = "conn-cursor-change"
	MsgConnReady        MsgType = "conn-ready"
	MsgConnUnready      MsgType = "conn-unready"
	MsgConnDisconnect   MsgType = "conn-disconnect"
)

// Message types sent by the relay to the client.
const (
	MsgConnConnected    MsgType = "conn-connected"
	MsgConnDisconnected MsgType = "conn-disconnected"

	MsgClientsConnected    MsgType = "clients-connected"
	MsgClientsReady        MsgType = "clients-ready"
	MsgClientsUnready      MsgType = "clients-unready"
	MsgClientsTextChange   MsgType = "clients-text-change"
	MsgClientsCursorChange MsgType = "clients-cursor-change"
	MsgClientsDisconnected MsgType = "clients-disconnected"

	MsgServerFileSaved MsgType = "server-file-saved"
)

// Rejection message types sent by the relay to the client.
const (
	MsgConnNotReady   MsgType = "conn-not-ready"
	MsgConnNotUnready MsgType = "conn-not-unready"

	MsgServerFileNotReady MsgType = "server-file-not-ready"
	MsgServerFileNotSaved MsgType = "server-file-not-saved"
)

func (t MsgType) String() string {
	return string(t)
}

func (t *MsgType) UnmarshalJSON(b []byte) error {
	return t.Parse(string(b))
}

// Parse is strict: an unknown discriminator is an error, never a pass-through.
// Applying a message of unknown shape would desynchronize the local replica.
func (t *MsgType) Parse(s string) error {
	s = strings.Trim(s, `"`)
	switch MsgType(s) {
	case MsgConnSave,
		MsgConnTextChange,
		MsgConnCursorChange,
		MsgConnReady,
		MsgConnUnready,
		MsgConnDisconnect,
		MsgConnConnected,
		MsgConnDisconnected,
		MsgClientsConnected,
		MsgClientsReady,
		MsgClientsUnready,
		MsgClientsTextChange,
		MsgClientsCursorChange,
		MsgClientsDisconnected,
		MsgServerFileSaved,
		MsgConnNotReady,
		MsgConnNotUnready,
		MsgServerFileNotReady,
		MsgServerFileNotSaved:
		*t = MsgType(s)
	default:
		return fmt.Errorf("invalid message type '%s'", s)
	}

	return nil
}

// Participant is one member of the session roster, as reported by the relay.
// Identity and color are relay-assigned and opaque to this package.
type Participant struct {
	Name  string `json:"username"`
	Color string `json:"color"`
	Ready bool   `json:"ready"`
}

// FileMeta travels once, on session establishment. Extension stays a raw
// string on the wire: an unknown value downgrades the rendering mode to
// plain text instead of failing the whole establishment message.
type FileMeta struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

type FileType string

const (
	FileTypePlain      FileType = "text"
	FileTypeHTML       FileType = "html"
	FileTypeCSS        FileType = "css"
	FileTypeJavascript FileType = "javascript"
)

func (t FileType) String() string {
	return string(t)
}

// Parse accepts both the canonical mode names the relay reports and the raw
// file extensions they derive from.
func (t *FileType) Parse(s string) error {
	s = strings.Trim(s, `"`)
	switch s {
	case "html", ".html":
		*t = FileTypeHTML
	case "css", ".css":
		*t = FileTypeCSS
	case "javascript", ".js":
		*t = FileTypeJavascript
	case "text", "":
		*t = FileTypePlain
	default:
		return fmt.Errorf("invalid file type '%s'", s)
	}

	return nil
}

// Message is the envelope for every relay-to-client record. Data carries a
// type-specific payload; the roster snapshot in Clients, when present, is
// applied after the type-specific handling.
type Message struct {
	Type     MsgType       `json:"type"`
	Data     string        `json:"data,omitempty"`
	FileMeta *FileMeta     `json:"fileMeta,omitempty"`
	Client   string        `json:"client,omitempty"`
	Clients  []Participant `json:"clients,omitempty"`
}

func DecodeMessage(raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty message")
	}
	msg := new(Message)
	if err := sonic.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("unmarshaling message: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("message has no type")
	}
	return msg, nil
}

// MarshalYAML renders the envelope for human-readable dumps.
func (m *Message) MarshalYAML() ([]byte, error) {
	if m.Type == "" {
		return nil, errors.New("message has no type")
	}
	type plain Message
	return yaml.MarshalWithOptions((*plain)(m), yaml.UseJSONMarshaler())
}

// controlMsg is the shape of every payload-free client-to-relay record.
type controlMsg struct {
	Type MsgType `json:"type"`
}

func encodeControl(t MsgType) ([]byte, error) {
	b, err := sonic.Marshal(controlMsg{Type: t})
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", t, err)
	}
	return b, nil
}
