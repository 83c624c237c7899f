package collab

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeValidate(t *testing.T) {
	tests := []struct {
		it      string
		change  *Change
		wantErr bool
	}{
		{
			it: "single character insert",
			change: &Change{
				Action: OpInsert,
				Start:  Position{Row: 0, Column: 3},
				End:    Position{Row: 0, Column: 4},
				Lines:  []string{"x"},
			},
		},
		{
			it: "multi-line remove",
			change: &Change{
				Action: OpRemove,
				Start:  Position{Row: 1, Column: 0},
				End:    Position{Row: 3, Column: 2},
				Lines:  []string{"aa", "bb", "cc"},
			},
		},
		{
			it:      "nil change",
			change:  nil,
			wantErr: true,
		},
		{
			it: "unknown action",
			change: &Change{
				Action: "explode",
				Lines:  []string{"x"},
			},
			wantErr: true,
		},
		{
			it: "no lines",
			change: &Change{
				Action: OpInsert,
				Start:  Position{Row: 0, Column: 0},
				End:    Position{Row: 0, Column: 1},
			},
			wantErr: true,
		},
		{
			it: "negative position",
			change: &Change{
				Action: OpInsert,
				Start:  Position{Row: -1, Column: 0},
				End:    Position{Row: 0, Column: 1},
				Lines:  []string{"x"},
			},
			wantErr: true,
		},
		{
			it: "end precedes start",
			change: &Change{
				Action: OpRemove,
				Start:  Position{Row: 2, Column: 5},
				End:    Position{Row: 2, Column: 1},
				Lines:  []string{"oops"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.it, func(t *testing.T) {
			err := tt.change.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestForwardedChangeRoundTrip(t *testing.T) {
	change := &Change{
		Action: OpInsert,
		Start:  Position{Row: 2, Column: 7},
		End:    Position{Row: 3, Column: 0},
		Lines:  []string{"padding: 2em;", ""},
	}

	// outbound shape: change object under data
	outbound, err := encodeTextChange(change)
	require.NoError(t, err)
	var msg textChangeMsg
	require.NoError(t, sonic.Unmarshal(outbound, &msg))
	assert.Equal(t, MsgConnTextChange, msg.Type)
	assert.Equal(t, change, msg.Data)

	// the relay forwards the whole record re-encoded as a string
	decoded, err := decodeForwardedChange(string(outbound))
	require.NoError(t, err)
	assert.Equal(t, change, decoded)
}

func TestDecodeForwardedChangeRejects(t *testing.T) {
	for name, data := range map[string]string{
		"empty":          "",
		"not json":       "][",
		"missing data":   `{"type":"conn-text-change"}`,
		"invalid action": `{"type":"conn-text-change","data":{"action":"explode","lines":["x"]}}`,
		"no lines":       `{"type":"conn-text-change","data":{"action":"insert"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeForwardedChange(data)
			assert.Error(t, err)
		})
	}
}

func TestEncodeTextChangeValidates(t *testing.T) {
	_, err := encodeTextChange(&Change{Action: "explode", Lines: []string{"x"}})
	assert.Error(t, err)
	_, err = encodeTextChange(nil)
	assert.Error(t, err)
}

func TestEncodeCursorChange(t *testing.T) {
	out, err := encodeCursorChange(Cursor{Index: 12, Length: 3})
	require.NoError(t, err)

	var msg cursorChangeMsg
	require.NoError(t, sonic.Unmarshal(out, &msg))
	assert.Equal(t, MsgConnCursorChange, msg.Type)
	assert.Equal(t, Cursor{Index: 12, Length: 3}, msg.Data)
}
