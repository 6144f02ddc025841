// Package bridge is the channel between the transfer core and the
// desktop UI. All UI-triggered mutations funnel through one loop, which
// keeps them serialized with upload ingress and hub broadcasts.
package bridge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yudhap/lanflow/internal/event"
	"github.com/yudhap/lanflow/internal/netaddr"
	"github.com/yudhap/lanflow/internal/received"
	"github.com/yudhap/lanflow/internal/store"
)

// Notifier is the outbound half of the bridge: callbacks into the
// desktop UI. Implementations must not block for long; they run on the
// bridge loop.
type Notifier interface {
	FilesReceived(files []received.File)
	HistoryUpdated(snap store.Snapshot)
	QRUpdated(url, qrDataURL string)
}

type commandKind int

const (
	cmdShareFiles commandKind = iota
	cmdShareText
	cmdRequestHistory
	cmdRequestQR
	cmdClearHistory
	cmdOpenUploadDir
)

type command struct {
	kind  commandKind
	files []store.FileInput
	text  string
	done  chan struct{}
}

// Bridge connects UI commands to the store and the UI notifier.
type Bridge struct {
	store     *store.Store
	notifier  Notifier
	baseURL   func() (string, error)
	openDir   func(dir string) error
	uploadDir string
	logger    zerolog.Logger
	commands  chan command
	events    <-chan event.Event
	cancelSub func()
}

// Config holds bridge construction parameters.
type Config struct {
	Store     *store.Store
	Notifier  Notifier
	BaseURL   func() (string, error)
	OpenDir   func(dir string) error // nil uses the platform opener
	UploadDir string
	Logger    zerolog.Logger
}

// New creates a bridge.
func New(cfg Config) (*Bridge, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if cfg.BaseURL == nil {
		return nil, fmt.Errorf("base URL source is required")
	}
	if cfg.OpenDir == nil {
		cfg.OpenDir = openDirectory
	}

	// Subscribe here, not in Run, so events published between
	// construction and the loop starting are queued rather than lost.
	events, cancel := cfg.Store.Bus().Subscribe(64)

	return &Bridge{
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		baseURL:   cfg.BaseURL,
		openDir:   cfg.OpenDir,
		uploadDir: cfg.UploadDir,
		logger:    cfg.Logger.With().Str("component", "bridge").Logger(),
		commands:  make(chan command, 16),
		events:    events,
		cancelSub: cancel,
	}, nil
}

// Run processes commands and domain events until ctx is done. The QR is
// pushed once at startup, matching the desktop's first render.
func (b *Bridge) Run(ctx context.Context) {
	defer b.cancelSub()

	b.pushQR()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-b.commands:
			b.handle(cmd)
			close(cmd.done)
		case evt, ok := <-b.events:
			if !ok {
				return
			}
			if evt.Kind == event.KindFilesReceived {
				if files, ok := evt.Payload.([]received.File); ok {
					b.notifier.FilesReceived(files)
				}
			}
		}
	}
}

func (b *Bridge) handle(cmd command) {
	switch cmd.kind {
	case cmdShareFiles:
		b.store.CreateBatch(cmd.files)
		b.notifier.HistoryUpdated(b.store.Snapshot())
	case cmdShareText:
		b.store.RecordText(cmd.text)
		b.notifier.HistoryUpdated(b.store.Snapshot())
	case cmdRequestHistory:
		b.notifier.HistoryUpdated(b.store.Snapshot())
	case cmdRequestQR:
		b.pushQR()
	case cmdClearHistory:
		b.store.Clear()
		b.notifier.HistoryUpdated(b.store.Snapshot())
	case cmdOpenUploadDir:
		if err := b.openDir(b.uploadDir); err != nil {
			b.logger.Warn().Err(err).Str("dir", b.uploadDir).Msg("Failed to open upload directory")
		}
	}
}

// pushQR recomputes the join URL and QR image. An unresolvable address
// is logged and skipped; the UI simply keeps its last state.
func (b *Bridge) pushQR() {
	url, err := b.baseURL()
	if err != nil {
		b.logger.Warn().Err(err).Msg("Cannot resolve LAN address for QR")
		return
	}

	qr, err := netaddr.QRDataURL(url)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to render QR code")
		return
	}

	b.notifier.QRUpdated(url, qr)
}

func (b *Bridge) submit(cmd command) {
	cmd.done = make(chan struct{})
	b.commands <- cmd
	<-cmd.done
}

// ShareFiles shares a group of files as one batch. Returns after the
// batch is visible in the store and the UI has been refreshed.
func (b *Bridge) ShareFiles(files []store.FileInput) {
	b.submit(command{kind: cmdShareFiles, files: files})
}

// ShareText shares a text snippet.
func (b *Bridge) ShareText(text string) {
	b.submit(command{kind: cmdShareText, text: text})
}

// RequestHistory pushes the current snapshot to the UI.
func (b *Bridge) RequestHistory() {
	b.submit(command{kind: cmdRequestHistory})
}

// RequestQR recomputes the join URL and pushes a fresh QR to the UI.
func (b *Bridge) RequestQR() {
	b.submit(command{kind: cmdRequestQR})
}

// ClearHistory empties the session state.
func (b *Bridge) ClearHistory() {
	b.submit(command{kind: cmdClearHistory})
}

// OpenUploadDir opens the received-files directory in the file manager.
func (b *Bridge) OpenUploadDir() {
	b.submit(command{kind: cmdOpenUploadDir})
}
