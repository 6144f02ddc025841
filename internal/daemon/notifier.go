package daemon

import (
	"github.com/rs/zerolog"

	"github.com/yudhap/lanflow/internal/received"
	"github.com/yudhap/lanflow/internal/store"
)

// logNotifier is the headless UI: bridge callbacks become log lines.
// A desktop shell replaces it with a real renderer.
type logNotifier struct {
	logger zerolog.Logger
}

func newLogNotifier(logger zerolog.Logger) *logNotifier {
	return &logNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

func (n *logNotifier) FilesReceived(files []received.File) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	n.logger.Info().Strs("files", names).Msg("Files received from a LAN peer")
}

func (n *logNotifier) HistoryUpdated(snap store.Snapshot) {
	n.logger.Info().
		Int("batches", len(snap.Batches)).
		Int("texts", len(snap.Texts)).
		Msg("Share history updated")
}

func (n *logNotifier) QRUpdated(url, qrDataURL string) {
	n.logger.Info().
		Str("url", url).
		Int("qr_bytes", len(qrDataURL)).
		Msg("Join QR refreshed")
}
