package bridge

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yudhap/lanflow/internal/event"
	"github.com/yudhap/lanflow/internal/received"
	"github.com/yudhap/lanflow/internal/store"
)

// recordingNotifier captures every callback for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	received  [][]received.File
	histories []store.Snapshot
	qrURLs    []string
	qrImages  []string
}

func (n *recordingNotifier) FilesReceived(files []received.File) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, files)
}

func (n *recordingNotifier) HistoryUpdated(snap store.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.histories = append(n.histories, snap)
}

func (n *recordingNotifier) QRUpdated(url, qrDataURL string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.qrURLs = append(n.qrURLs, url)
	n.qrImages = append(n.qrImages, qrDataURL)
}

func (n *recordingNotifier) historyCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.histories)
}

func (n *recordingNotifier) lastHistory() store.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.histories[len(n.histories)-1]
}

type bridgeFixture struct {
	store    *store.Store
	bridge   *Bridge
	notifier *recordingNotifier
	opened   chan string
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	st := store.New(store.Config{IDs: store.NewSequenceGenerator("id")})
	notifier := &recordingNotifier{}
	opened := make(chan string, 4)

	b, err := New(Config{
		Store:    st,
		Notifier: notifier,
		BaseURL: func() (string, error) {
			return "http://192.168.1.42:3000", nil
		},
		OpenDir: func(dir string) error {
			opened <- dir
			return nil
		},
		UploadDir: "/tmp/received",
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	t.Cleanup(cancel)

	return &bridgeFixture{store: st, bridge: b, notifier: notifier, opened: opened}
}

func TestShareFiles(t *testing.T) {
	f := newBridgeFixture(t)

	f.bridge.ShareFiles([]store.FileInput{
		{Name: "a.txt", Path: "/home/u/a.txt", Size: 10},
	})

	// Synchronous: the store reflects the write when the call returns
	assert.Equal(t, 1, f.store.BatchCount())

	require.GreaterOrEqual(t, f.notifier.historyCount(), 1)
	snap := f.notifier.lastHistory()
	require.Len(t, snap.Batches, 1)
	assert.Equal(t, "a.txt", snap.Batches[0].Files[0].Name)
}

func TestShareText(t *testing.T) {
	f := newBridgeFixture(t)

	f.bridge.ShareText("hello")

	assert.Equal(t, 1, f.store.TextCount())
	snap := f.notifier.lastHistory()
	require.Len(t, snap.Texts, 1)
	assert.Equal(t, "hello", snap.Texts[0].Content)
}

func TestRequestHistory(t *testing.T) {
	f := newBridgeFixture(t)

	f.bridge.RequestHistory()

	assert.Equal(t, 1, f.notifier.historyCount())
	assert.Empty(t, f.notifier.lastHistory().Batches)
}

func TestClearHistory(t *testing.T) {
	f := newBridgeFixture(t)

	f.bridge.ShareFiles([]store.FileInput{{Name: "a.txt", Path: "/tmp/a", Size: 1}})
	f.bridge.ShareText("note")
	f.bridge.ClearHistory()

	assert.Equal(t, 0, f.store.BatchCount())
	assert.Equal(t, 0, f.store.TextCount())

	snap := f.notifier.lastHistory()
	assert.Empty(t, snap.Batches)
	assert.Empty(t, snap.Texts)
}

func TestRequestQR(t *testing.T) {
	f := newBridgeFixture(t)

	f.bridge.RequestQR()

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	require.NotEmpty(t, f.notifier.qrURLs)
	assert.Equal(t, "http://192.168.1.42:3000", f.notifier.qrURLs[len(f.notifier.qrURLs)-1])
	assert.True(t, strings.HasPrefix(f.notifier.qrImages[0], "data:image/png;base64,"))
}

func TestStartupQRPush(t *testing.T) {
	f := newBridgeFixture(t)

	// Run pushes the QR once without any command
	assert.Eventually(t, func() bool {
		f.notifier.mu.Lock()
		defer f.notifier.mu.Unlock()
		return len(f.notifier.qrURLs) >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQRSkippedWhenUnresolvable(t *testing.T) {
	st := store.New(store.Config{IDs: store.NewSequenceGenerator("id")})
	notifier := &recordingNotifier{}

	b, err := New(Config{
		Store:    st,
		Notifier: notifier,
		BaseURL: func() (string, error) {
			return "", assert.AnError
		},
		OpenDir: func(string) error { return nil },
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.RequestQR()

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Empty(t, notifier.qrURLs)
}

func TestOpenUploadDir(t *testing.T) {
	f := newBridgeFixture(t)

	f.bridge.OpenUploadDir()

	select {
	case dir := <-f.opened:
		assert.Equal(t, "/tmp/received", dir)
	case <-time.After(time.Second):
		t.Fatal("upload directory was not opened")
	}
}

func TestFilesReceivedForwarded(t *testing.T) {
	f := newBridgeFixture(t)

	files := []received.File{{Name: "up.jpg", Path: "/tmp/up.jpg", Size: 5, ReceivedAt: time.Now()}}
	f.store.Bus().Publish(event.Event{Kind: event.KindFilesReceived, Payload: files})

	assert.Eventually(t, func() bool {
		f.notifier.mu.Lock()
		defer f.notifier.mu.Unlock()
		return len(f.notifier.received) == 1 && f.notifier.received[0][0].Name == "up.jpg"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestFilesReceivedBeforeRunNotLost(t *testing.T) {
	st := store.New(store.Config{IDs: store.NewSequenceGenerator("id")})
	notifier := &recordingNotifier{}

	b, err := New(Config{
		Store:    st,
		Notifier: notifier,
		BaseURL: func() (string, error) {
			return "http://192.168.1.42:3000", nil
		},
		OpenDir: func(string) error { return nil },
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	// Published before the loop starts: must be queued, not dropped
	files := []received.File{{Name: "early.png", Path: "/tmp/early.png", Size: 3, ReceivedAt: time.Now()}}
	st.Bus().Publish(event.Event{Kind: event.KindFilesReceived, Payload: files})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)

	assert.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.received) == 1 && notifier.received[0][0].Name == "early.png"
	}, 2*time.Second, 10*time.Millisecond)
}
