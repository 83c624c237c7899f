package agents

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/relayedit/collab"
	"github.com/relayedit/collab/shared"
	"github.com/relayedit/collab/surface"
	"go.uber.org/zap"
)

// CLIAgent joins a document session and drives it from a terminal: typed
// lines become edits, colon commands map to the session commands, notices
// and roster snapshots render through the printer.
type CLIAgent struct {
	logger  shared.LoggerAdapter
	printer *shared.Printer
	client  *collab.Client
	buffer  *surface.Buffer

	mu sync.Mutex
}

// Spawn wires the session together: login bootstrap when needed, client
// construction, surface and sink registration, then the dial. It returns
// once the baseline content has arrived or the session died trying.
func (a *CLIAgent) Spawn(ctx context.Context, logger shared.LoggerAdapter, cfg *Config, printer *shared.Printer) error {
	if logger == nil {
		return shared.ErrNoLogger
	}
	if cfg == nil {
		return errors.New("no config provided")
	}
	if printer == nil {
		return errors.New("no printer provided")
	}
	a.logger = logger
	a.printer = printer
	a.logger.Info("spawning CLI agent")
	if err := a.printer.Writeln("📝 Joining document session...\n", 0); err != nil {
		a.logger.Error("printing banner", err)
	}

	connID := cfg.ConnectionID
	if connID == "" {
		var err error
		connID, err = collab.Login(ctx, cfg.ServerURL, cfg.Username)
		if err != nil {
			a.logger.Error("logging in", err)
			return fmt.Errorf("logging in: %w", err)
		}
		a.logger.Info("logged in", zap.String("username", cfg.Username))
	}

	client, err := collab.NewClient(ctx, a.logger, cfg.ServerURL, connID)
	if err != nil {
		a.logger.Error("creating client", err)
		return err
	}
	a.client = client

	a.buffer = surface.NewBuffer()
	if err := client.RegisterSurface(a.buffer); err != nil {
		a.logger.Error("registering surface", err)
		return err
	}
	if err := client.RegisterNotifier(&printerNotifier{printer: printer, logger: a.logger}); err != nil {
		a.logger.Error("registering notifier", err)
		return err
	}
	if err := client.RegisterRosterHandler(a.renderRoster); err != nil {
		a.logger.Error("registering roster handler", err)
		return err
	}

	if err := client.Start(); err != nil {
		a.logger.Error("starting session", err)
		return err
	}

	select {
	case <-client.Synced():
	case <-ctx.Done():
		return ctx.Err()
	}
	if client.State() == collab.StateClosed {
		return shared.ErrSessionClosed
	}

	if meta := client.FileMeta(); meta != nil {
		if err := a.printer.Writeln(fmt.Sprintf("📄 %s (%s)\n", meta.Name, meta.Extension), 0); err != nil {
			a.logger.Error("printing file meta", err)
		}
	}
	if err := a.printer.Writeln(a.buffer.Content(), 1); err != nil {
		a.logger.Error("printing baseline content", err)
	}
	return nil
}

// Run reads commands and edits until EOF or session end. Lines starting
// with a colon are commands (:save, :ready, :unready, :quit); anything else
// is appended to the document as a new line.
func (a *CLIAgent) Run(ctx context.Context, input io.Reader) error {
	scanner := bufio.NewScanner(input)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-a.client.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return a.Close()
		case <-a.client.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return a.Close()
			}
			if err := a.dispatch(line); err != nil {
				if errors.Is(err, errQuit) {
					return a.Close()
				}
				a.logger.Warn("command failed", zap.String("input", line), zap.Error(err))
				if err := a.printer.Writeln(fmt.Sprintf("⚠️  %v", err), 0); err != nil {
					a.logger.Error("printing command failure", err)
				}
			}
		}
	}
}

var errQuit = errors.New("quit requested")

func (a *CLIAgent) dispatch(line string) error {
	switch strings.TrimSpace(line) {
	case ":save":
		return a.client.Save()
	case ":ready":
		return a.client.DeclareReady()
	case ":unready":
		return a.client.DeclareUnready()
	case ":quit":
		return errQuit
	default:
		return a.appendLine(line)
	}
}

// appendLine inserts the typed text as a fresh line at the end of the
// document. The buffer fires the change callback, which forwards the edit
// to the relay through the usual gate.
func (a *CLIAgent) appendLine(text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	row := a.buffer.LineCount() - 1
	lastLine := strings.Split(a.buffer.Content(), "\n")[row]
	_, err := a.buffer.Insert(row, len(lastLine), "\n"+text)
	return err
}

func (a *CLIAgent) renderRoster(roster collab.Roster, localReady bool) {
	var sb strings.Builder
	sb.WriteString("👥 ")
	if len(roster) == 0 {
		sb.WriteString("(session closed)")
	}
	for i, p := range roster {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
		if p.Ready {
			sb.WriteString(" ✓")
		}
	}
	if roster.SaveAllowed() {
		sb.WriteString("  [:save available]")
	}
	if roster.ReadyOffered(localReady) {
		sb.WriteString("  [:ready available]")
	}
	if localReady {
		sb.WriteString("  [:unready available]")
	}
	if err := a.printer.Writeln(sb.String(), 0); err != nil {
		a.logger.Error("printing roster", err)
	}
}

// Done is closed when the session reaches its terminal state.
func (a *CLIAgent) Done() <-chan struct{} {
	if a.client == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return a.client.Done()
}

func (a *CLIAgent) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect()
}

// printerNotifier renders notices to the terminal. Clear is a no-op beyond
// logging: a terminal cannot retract lines already printed.
type printerNotifier struct {
	printer *shared.Printer
	logger  shared.LoggerAdapter
}

var _ collab.Notifier = (*printerNotifier)(nil)

func (n *printerNotifier) Notify(notice collab.Notice) {
	icon := map[collab.Severity]string{
		collab.SeverityInfo:    "ℹ️ ",
		collab.SeveritySuccess: "✅",
		collab.SeverityWarning: "⚠️ ",
		collab.SeverityDanger:  "❌",
	}[notice.Severity]
	if err := n.printer.Writeln(fmt.Sprintf("%s %s", icon, notice.Text), 0); err != nil {
		n.logger.Error("printing notice", err)
	}
}

func (n *printerNotifier) Clear() {
	n.logger.Debug("notice clear requested")
}
