// Package surface provides an in-memory editing surface: a line-oriented
// text buffer implementing the change semantics the relay expects, usable
// headless by agents and tests.
package surface

import (
	"fmt"
	"strings"
	"sync"

	"github.com/relayedit/collab"
	"github.com/relayedit/collab/shared"
)

// Buffer is a line buffer holding the local replica of the shared document.
// Every mutation, programmatic or user-driven, fires the registered change
// callback; distinguishing the two is the session client's concern.
type Buffer struct {
	mu       sync.Mutex
	lines    []string
	mode     collab.FileType
	readOnly bool
	onChange func(change *collab.Change)
}

var _ collab.Surface = (*Buffer)(nil)

func NewBuffer() *Buffer {
	return &Buffer{
		lines: []string{""},
		mode:  collab.FileTypePlain,
	}
}

func (b *Buffer) OnChange(fn func(change *collab.Change)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// SetContent replaces the whole buffer and fires a single insert change
// covering the new content, mirroring how editor widgets report a
// programmatic setValue.
func (b *Buffer) SetContent(content string) {
	b.mu.Lock()
	lines := strings.Split(content, "\n")
	b.lines = lines
	change := &collab.Change{
		Action: collab.OpInsert,
		Start:  collab.Position{Row: 0, Column: 0},
		End: collab.Position{
			Row:    len(lines) - 1,
			Column: len(lines[len(lines)-1]),
		},
		Lines: lines,
	}
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(change)
	}
}

// Content returns the buffer joined with newlines.
func (b *Buffer) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

func (b *Buffer) SetMode(mode collab.FileType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = mode
}

func (b *Buffer) Mode() collab.FileType {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

func (b *Buffer) SetReadOnly(readOnly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = readOnly
}

func (b *Buffer) ReadOnly() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readOnly
}

// Apply mutates the buffer with a change, ignoring the read-only flag:
// remote deltas must land even while local editing is frozen.
func (b *Buffer) Apply(change *collab.Change) error {
	b.mu.Lock()
	if err := b.applyLocked(change); err != nil {
		b.mu.Unlock()
		return err
	}
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(change)
	}
	return nil
}

// Insert is a user-level edit: it inserts text at a position, honors the
// read-only flag, and fires the change callback with the resulting change.
func (b *Buffer) Insert(row, column int, text string) (*collab.Change, error) {
	b.mu.Lock()
	if b.readOnly {
		b.mu.Unlock()
		return nil, shared.ErrReadOnly
	}
	lines := strings.Split(text, "\n")
	end := collab.Position{Row: row + len(lines) - 1, Column: len(lines[len(lines)-1])}
	if len(lines) == 1 {
		end.Column = column + len(lines[0])
	}
	change := &collab.Change{
		Action: collab.OpInsert,
		Start:  collab.Position{Row: row, Column: column},
		End:    end,
		Lines:  lines,
	}
	if err := b.applyLocked(change); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(change)
	}
	return change, nil
}

// Remove is a user-level edit deleting the range [start, end).
func (b *Buffer) Remove(start, end collab.Position) (*collab.Change, error) {
	b.mu.Lock()
	if b.readOnly {
		b.mu.Unlock()
		return nil, shared.ErrReadOnly
	}
	removed, err := b.extractLocked(start, end)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	change := &collab.Change{
		Action: collab.OpRemove,
		Start:  start,
		End:    end,
		Lines:  removed,
	}
	if err := b.applyLocked(change); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(change)
	}
	return change, nil
}

// LineCount returns the number of lines in the buffer.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

func (b *Buffer) applyLocked(change *collab.Change) error {
	if err := change.Validate(); err != nil {
		return err
	}
	switch change.Action {
	case collab.OpInsert:
		return b.insertLocked(change)
	case collab.OpRemove:
		return b.removeLocked(change)
	}
	return nil
}

func (b *Buffer) insertLocked(change *collab.Change) error {
	row, col := change.Start.Row, change.Start.Column
	if row >= len(b.lines) {
		return fmt.Errorf("insert row %d out of range (%d lines)", row, len(b.lines))
	}
	line := b.lines[row]
	if col > len(line) {
		return fmt.Errorf("insert column %d out of range on row %d", col, row)
	}

	before, after := line[:col], line[col:]
	if len(change.Lines) == 1 {
		b.lines[row] = before + change.Lines[0] + after
		return nil
	}

	// multi-line insert: the first fragment extends the current line, the
	// last fragment takes over the remainder, the middle lines go between
	newLines := make([]string, 0, len(b.lines)+len(change.Lines)-1)
	newLines = append(newLines, b.lines[:row]...)
	newLines = append(newLines, before+change.Lines[0])
	newLines = append(newLines, change.Lines[1:len(change.Lines)-1]...)
	newLines = append(newLines, change.Lines[len(change.Lines)-1]+after)
	newLines = append(newLines, b.lines[row+1:]...)
	b.lines = newLines
	return nil
}

func (b *Buffer) removeLocked(change *collab.Change) error {
	start, end := change.Start, change.End
	if end.Row >= len(b.lines) {
		return fmt.Errorf("remove row %d out of range (%d lines)", end.Row, len(b.lines))
	}
	if start.Column > len(b.lines[start.Row]) || end.Column > len(b.lines[end.Row]) {
		return fmt.Errorf("remove range out of range on rows %d-%d", start.Row, end.Row)
	}

	if start.Row == end.Row {
		line := b.lines[start.Row]
		b.lines[start.Row] = line[:start.Column] + line[end.Column:]
		return nil
	}

	merged := b.lines[start.Row][:start.Column] + b.lines[end.Row][end.Column:]
	newLines := make([]string, 0, len(b.lines)-(end.Row-start.Row))
	newLines = append(newLines, b.lines[:start.Row]...)
	newLines = append(newLines, merged)
	newLines = append(newLines, b.lines[end.Row+1:]...)
	b.lines = newLines
	return nil
}

// extractLocked collects the text in [start, end) as change lines, used to
// build the lines payload of a remove change.
func (b *Buffer) extractLocked(start, end collab.Position) ([]string, error) {
	if end.Row >= len(b.lines) {
		return nil, fmt.Errorf("range row %d out of range (%d lines)", end.Row, len(b.lines))
	}
	if start.Column > len(b.lines[start.Row]) || end.Column > len(b.lines[end.Row]) {
		return nil, fmt.Errorf("range out of range on rows %d-%d", start.Row, end.Row)
	}
	if start.Row == end.Row {
		if end.Column < start.Column {
			return nil, fmt.Errorf("range end precedes start")
		}
		return []string{b.lines[start.Row][start.Column:end.Column]}, nil
	}
	out := make([]string, 0, end.Row-start.Row+1)
	out = append(out, b.lines[start.Row][start.Column:])
	for row := start.Row + 1; row < end.Row; row++ {
		out = append(out, b.lines[row])
	}
	out = append(out, b.lines[end.Row][:end.Column])
	return out, nil
}
