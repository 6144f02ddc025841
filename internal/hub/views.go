package hub

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yudhap/lanflow/internal/store"
)

// FileView is one shared file as presented to browser clients.
type FileView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// BatchView is one batch as presented to browser clients.
type BatchView struct {
	ID        string     `json:"id"`
	Timestamp int64      `json:"timestamp"`
	Files     []FileView `json:"files"`
	ZipURL    string     `json:"zipUrl"`
}

// TextView is one text entry as presented to browser clients.
type TextView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// HistoryMessage is the resynchronization snapshot sent on connect.
type HistoryMessage struct {
	Type    string      `json:"type"`
	Batches []BatchView `json:"batches"`
	Texts   []TextView  `json:"texts"`
}

// EventMessage is a single pushed state change.
type EventMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// URLBuilder turns store ids into the absolute URLs browser clients
// download from. The base is resolved per call because the LAN address
// can change while the process runs.
type URLBuilder struct {
	base   func() (string, error)
	logger zerolog.Logger
}

// NewURLBuilder creates a builder. base returns "http://<lan-ip>:<port>".
func NewURLBuilder(base func() (string, error), logger zerolog.Logger) *URLBuilder {
	return &URLBuilder{base: base, logger: logger}
}

// FileURL returns the download URL for one file. If the LAN address is
// unresolvable the path-only form is returned; the browser already loaded
// the page from this host, so a same-origin path still works.
func (u *URLBuilder) FileURL(batchID, fileID string) string {
	return u.prefix() + fmt.Sprintf("/download/%s/%s", batchID, fileID)
}

// BatchZipURL returns the zip download URL for a batch.
func (u *URLBuilder) BatchZipURL(batchID string) string {
	return u.prefix() + fmt.Sprintf("/download-batch/%s", batchID)
}

func (u *URLBuilder) prefix() string {
	base, err := u.base()
	if err != nil {
		u.logger.Warn().Err(err).Msg("LAN address unresolved, handing out relative URLs")
		return ""
	}
	return base
}

// BatchToView converts a batch to its wire shape.
func (u *URLBuilder) BatchToView(b *store.Batch) BatchView {
	view := BatchView{
		ID:        b.ID,
		Timestamp: b.CreatedAt.UnixMilli(),
		Files:     make([]FileView, 0, len(b.Files)),
		ZipURL:    u.BatchZipURL(b.ID),
	}
	for _, f := range b.Files {
		view.Files = append(view.Files, FileView{
			ID:   f.ID,
			Name: f.Name,
			Size: f.Size,
			URL:  u.FileURL(b.ID, f.ID),
		})
	}
	return view
}

// TextToView converts a text entry to its wire shape.
func TextToView(t *store.TextEntry) TextView {
	return TextView{
		ID:        t.ID,
		Text:      t.Content,
		Timestamp: t.CreatedAt.UnixMilli(),
	}
}

// SnapshotToHistory converts a store snapshot to the history message.
func (u *URLBuilder) SnapshotToHistory(snap store.Snapshot) HistoryMessage {
	msg := HistoryMessage{
		Type:    "history",
		Batches: make([]BatchView, 0, len(snap.Batches)),
		Texts:   make([]TextView, 0, len(snap.Texts)),
	}
	for _, b := range snap.Batches {
		msg.Batches = append(msg.Batches, u.BatchToView(b))
	}
	for _, t := range snap.Texts {
		msg.Texts = append(msg.Texts, TextToView(t))
	}
	return msg
}
