package surface_test

import (
	"testing"

	"github.com/relayedit/collab"
	"github.com/relayedit/collab/shared"
	"github.com/relayedit/collab/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cssExample = `pre code.hljs {
	display: block;
	overflow-x: auto;
	padding: 1em;
}

code.hljs {
	padding: 3px 5px;
}`

func TestApplyChanges(t *testing.T) {
	tests := []struct {
		it       string
		changes  []*collab.Change
		expected string
	}{
		{
			it: "change padding property",
			changes: []*collab.Change{
				{
					Action: collab.OpRemove,
					Start:  collab.Position{Row: 3, Column: 10},
					End:    collab.Position{Row: 3, Column: 13},
					Lines:  []string{"1em"},
				},
				{
					Action: collab.OpInsert,
					Start:  collab.Position{Row: 3, Column: 10},
					End:    collab.Position{Row: 3, Column: 11},
					Lines:  []string{"2"},
				},
				{
					Action: collab.OpInsert,
					Start:  collab.Position{Row: 3, Column: 11},
					End:    collab.Position{Row: 3, Column: 12},
					Lines:  []string{"e"},
				},
				{
					Action: collab.OpInsert,
					Start:  collab.Position{Row: 3, Column: 12},
					End:    collab.Position{Row: 3, Column: 13},
					Lines:  []string{"m"},
				},
			},
			expected: `pre code.hljs {
	display: block;
	overflow-x: auto;
	padding: 2em;
}

code.hljs {
	padding: 3px 5px;
}`,
		},
		{
			it: "remove whole code.hljs block",
			changes: []*collab.Change{
				{
					Action: collab.OpRemove,
					Start:  collab.Position{Row: 4, Column: 1},
					End:    collab.Position{Row: 8, Column: 1},
					Lines:  []string{"", "", "code.hljs {", "	padding: 3px 5px;", "}"},
				},
			},
			expected: `pre code.hljs {
	display: block;
	overflow-x: auto;
	padding: 1em;
}`,
		},
		{
			it: "insert new rule across lines",
			changes: []*collab.Change{
				{
					Action: collab.OpInsert,
					Start:  collab.Position{Row: 8, Column: 1},
					End:    collab.Position{Row: 10, Column: 1},
					Lines:  []string{"", "", "em { color: red; }"},
				},
			},
			expected: cssExample + "\n\nem { color: red; }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.it, func(t *testing.T) {
			b := surface.NewBuffer()
			b.SetContent(cssExample)

			for _, change := range tt.changes {
				require.NoError(t, b.Apply(change))
			}

			assert.Equal(t, tt.expected, b.Content())
		})
	}
}

func TestApplyRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		it     string
		change *collab.Change
	}{
		{
			it: "insert row past end",
			change: &collab.Change{
				Action: collab.OpInsert,
				Start:  collab.Position{Row: 99, Column: 0},
				End:    collab.Position{Row: 99, Column: 1},
				Lines:  []string{"x"},
			},
		},
		{
			it: "insert column past line end",
			change: &collab.Change{
				Action: collab.OpInsert,
				Start:  collab.Position{Row: 0, Column: 999},
				End:    collab.Position{Row: 0, Column: 1000},
				Lines:  []string{"x"},
			},
		},
		{
			it: "remove row past end",
			change: &collab.Change{
				Action: collab.OpRemove,
				Start:  collab.Position{Row: 0, Column: 0},
				End:    collab.Position{Row: 99, Column: 0},
				Lines:  []string{"x"},
			},
		},
		{
			it: "invalid action",
			change: &collab.Change{
				Action: "explode",
				Lines:  []string{"x"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.it, func(t *testing.T) {
			b := surface.NewBuffer()
			b.SetContent(cssExample)
			before := b.Content()

			assert.Error(t, b.Apply(tt.change))
			assert.Equal(t, before, b.Content(), "failed apply must not corrupt the buffer")
		})
	}
}

func TestInsertAndRemoveUserEdits(t *testing.T) {
	b := surface.NewBuffer()
	b.SetContent("hello world")

	change, err := b.Insert(0, 5, ",")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", b.Content())
	assert.Equal(t, collab.OpInsert, change.Action)
	assert.Equal(t, []string{","}, change.Lines)

	change, err = b.Remove(collab.Position{Row: 0, Column: 5}, collab.Position{Row: 0, Column: 6})
	require.NoError(t, err)
	assert.Equal(t, "hello world", b.Content())
	assert.Equal(t, collab.OpRemove, change.Action)
	assert.Equal(t, []string{","}, change.Lines)
}

func TestMultiLineInsertAndRemove(t *testing.T) {
	b := surface.NewBuffer()
	b.SetContent("first\nlast")

	_, err := b.Insert(0, 5, "\nmiddle")
	require.NoError(t, err)
	assert.Equal(t, "first\nmiddle\nlast", b.Content())
	assert.Equal(t, 3, b.LineCount())

	change, err := b.Remove(collab.Position{Row: 0, Column: 5}, collab.Position{Row: 1, Column: 6})
	require.NoError(t, err)
	assert.Equal(t, "first\nlast", b.Content())
	assert.Equal(t, []string{"", "middle"}, change.Lines)
}

func TestReadOnlyBlocksUserEditsNotRemoteOnes(t *testing.T) {
	b := surface.NewBuffer()
	b.SetContent("frozen")
	b.SetReadOnly(true)

	_, err := b.Insert(0, 0, "x")
	assert.ErrorIs(t, err, shared.ErrReadOnly)
	_, err = b.Remove(collab.Position{}, collab.Position{Row: 0, Column: 1})
	assert.ErrorIs(t, err, shared.ErrReadOnly)
	assert.Equal(t, "frozen", b.Content())

	// remote deltas land regardless: the ready lock freezes typing, not sync
	require.NoError(t, b.Apply(&collab.Change{
		Action: collab.OpInsert,
		Start:  collab.Position{Row: 0, Column: 6},
		End:    collab.Position{Row: 0, Column: 7},
		Lines:  []string{"!"},
	}))
	assert.Equal(t, "frozen!", b.Content())
}

func TestChangeCallbackFiresOnEveryMutation(t *testing.T) {
	b := surface.NewBuffer()
	var fired []*collab.Change
	b.OnChange(func(change *collab.Change) {
		fired = append(fired, change)
	})

	b.SetContent("a\nb")
	require.Len(t, fired, 1)
	assert.Equal(t, []string{"a", "b"}, fired[0].Lines)

	_, err := b.Insert(1, 1, "c")
	require.NoError(t, err)
	require.Len(t, fired, 2)

	require.NoError(t, b.Apply(&collab.Change{
		Action: collab.OpRemove,
		Start:  collab.Position{Row: 1, Column: 1},
		End:    collab.Position{Row: 1, Column: 2},
		Lines:  []string{"c"},
	}))
	require.Len(t, fired, 3)
	assert.Equal(t, "a\nb", b.Content())
}
