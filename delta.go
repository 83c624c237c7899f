package collab

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Change actions.
const (
	OpInsert = "insert"
	OpRemove = "remove"
)

// Position addresses a point in the document as a zero-based row and a
// zero-based column within that row.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Change is one atomic, order-sensitive document mutation. Lines holds the
// inserted or removed text split on newlines; a change spanning N rows has
// N entries.
type Change struct {
	Action string   `json:"action"`
	Start  Position `json:"start"`
	End    Position `json:"end"`
	Lines  []string `json:"lines"`
}

func (c *Change) Validate() error {
	if c == nil {
		return fmt.Errorf("change is nil")
	}
	if c.Action != OpInsert && c.Action != OpRemove {
		return fmt.Errorf("invalid change action '%s'", c.Action)
	}
	if len(c.Lines) == 0 {
		return fmt.Errorf("change has no lines")
	}
	if c.Start.Row < 0 || c.Start.Column < 0 || c.End.Row < 0 || c.End.Column < 0 {
		return fmt.Errorf("change position out of range")
	}
	if c.End.Row < c.Start.Row || (c.End.Row == c.Start.Row && c.End.Column < c.Start.Column) {
		return fmt.Errorf("change end precedes start")
	}
	return nil
}

// textChangeMsg is the client-to-relay shape of a local edit: the change
// travels as a structured object under data.
type textChangeMsg struct {
	Type MsgType `json:"type"`
	Data *Change `json:"data"`
}

func encodeTextChange(change *Change) ([]byte, error) {
	if err := change.Validate(); err != nil {
		return nil, fmt.Errorf("validating change: %w", err)
	}
	b, err := sonic.Marshal(textChangeMsg{Type: MsgConnTextChange, Data: change})
	if err != nil {
		return nil, fmt.Errorf("marshaling text change: %w", err)
	}
	return b, nil
}

// decodeForwardedChange unwraps a relay-forwarded peer edit. The relay fans
// out the originating client's message verbatim as a JSON string, so the
// payload is the full {"type":...,"data":<change>} record re-encoded inside
// the envelope's data field.
func decodeForwardedChange(data string) (*Change, error) {
	if data == "" {
		return nil, fmt.Errorf("forwarded change is empty")
	}
	var msg textChangeMsg
	if err := sonic.Unmarshal([]byte(data), &msg); err != nil {
		return nil, fmt.Errorf("unmarshaling forwarded change: %w", err)
	}
	if err := msg.Data.Validate(); err != nil {
		return nil, fmt.Errorf("validating forwarded change: %w", err)
	}
	return msg.Data, nil
}

// Cursor is a participant's selection: a rune offset into the document and
// the length of the selected range.
type Cursor struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

type cursorChangeMsg struct {
	Type MsgType `json:"type"`
	Data Cursor  `json:"data"`
}

func encodeCursorChange(cursor Cursor) ([]byte, error) {
	b, err := sonic.Marshal(cursorChangeMsg{Type: MsgConnCursorChange, Data: cursor})
	if err != nil {
		return nil, fmt.Errorf("marshaling cursor change: %w", err)
	}
	return b, nil
}
