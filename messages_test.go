package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMsgTypeParse(t *testing.T) {
	valid := []MsgType{
		MsgConnSave,
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
		MsgServerFileNotSaved,
	}
	for _, expected := range valid {
		t.Run(expected.String(), func(t *testing.T) {
			var parsed MsgType
			require.NoError(t, parsed.Parse(`"`+expected.String()+`"`))
			assert.Equal(t, expected, parsed)
		})
	}

	for _, invalid := range []string{"", "conn-made-up", "nil", "CONN-SAVE"} {
		var parsed MsgType
		assert.Error(t, parsed.Parse(invalid), "'%s' must be rejected", invalid)
	}
}

func TestFileTypeParse(t *testing.T) {
	tests := []struct {
		input    string
		expected FileType
		wantErr  bool
	}{
		{input: "html", expected: FileTypeHTML},
		{input: ".html", expected: FileTypeHTML},
		{input: "css", expected: FileTypeCSS},
		{input: ".css", expected: FileTypeCSS},
		{input: "javascript", expected: FileTypeJavascript},
		{input: ".js", expected: FileTypeJavascript},
		{input: "text", expected: FileTypePlain},
		{input: "", expected: FileTypePlain},
		{input: ".py", wantErr: true},
		{input: "markdown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var parsed FileType
			err := parsed.Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, parsed)
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	raw := []byte(`{
		"type": "conn-connected",
		"data": "hello",
		"fileMeta": {"name": "index.html", "extension": "html"},
		"client": "A",
		"clients": [
			{"username": "A", "color": "red", "ready": false},
			{"username": "B", "color": "blue", "ready": true}
		]
	}`)

	msg, err := DecodeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, MsgConnConnected, msg.Type)
	assert.Equal(t, "hello", msg.Data)
	require.NotNil(t, msg.FileMeta)
	assert.Equal(t, "index.html", msg.FileMeta.Name)
	assert.Equal(t, "html", msg.FileMeta.Extension)
	require.Len(t, msg.Clients, 2)
	assert.Equal(t, Participant{Name: "B", Color: "blue", Ready: true}, msg.Clients[1])
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	for name, raw := range map[string][]byte{
		"empty":        nil,
		"not json":     []byte("]["),
		"no type":      []byte(`{"data":"x"}`),
		"unknown type": []byte(`{"type":"made-up"}`),
		"numeric type": []byte(`{"type":12}`),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMessage(raw)
			assert.Error(t, err)
		})
	}
}

func TestMessageMarshalYAML(t *testing.T) {
	msg := &Message{
		Type:   MsgClientsConnected,
		Client: "B",
		Clients: []Participant{
			{Name: "A", Color: "red"},
		},
	}
	out, err := msg.MarshalYAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "clients-connected")
	assert.Contains(t, string(out), "username: A")

	_, err = (&Message{}).MarshalYAML()
	assert.Error(t, err)
}
