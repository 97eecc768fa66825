package ops

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// StreamJournal upgrades the request to a WebSocket and streams live journal
// lines for the configured service unit, one text message per line, until the
// client disconnects or the process ends.
//
// The follow process runs outside the command semaphore: tailing is
// long-lived and must not starve the one-shot commands.
func (r *Runner) StreamJournal(w http.ResponseWriter, req *http.Request) {
	ws, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	// Read loop: consumes pings and detects disconnects.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()

	cmd := r.execCommand(ctx, "journalctl", "-u", r.cfg.ServiceUnit, "-f", "--no-pager")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = ws.Close(websocket.StatusInternalError, "journal unavailable")
		return
	}
	if err := cmd.Start(); err != nil {
		slog.Error("journal follow failed to start", "error", err)
		_ = ws.Close(websocket.StatusInternalError, "journal unavailable")
		return
	}
	defer func() { _ = cmd.Wait() }()

	slog.Info("journal stream opened", "unit", r.cfg.ServiceUnit, "remote", req.RemoteAddr)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ws.Write(ctx, websocket.MessageText, scanner.Bytes()); err != nil {
			break
		}
	}

	cancel() // kills journalctl via the exec context
	_ = ws.Close(websocket.StatusNormalClosure, "")
	slog.Info("journal stream closed", "unit", r.cfg.ServiceUnit)
}
