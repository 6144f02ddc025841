package httpserver

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yudhap/lanflow/internal/event"
	"github.com/yudhap/lanflow/internal/received"
)

// handleUpload accepts multipart uploads from LAN peers. Files stream to
// the upload directory under a timestamp-prefixed name; nothing here
// touches the outward batch history.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "No files uploaded.", http.StatusBadRequest)
		return
	}

	var files []received.File

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to read upload part")
			http.Error(w, "Upload failed", http.StatusInternalServerError)
			return
		}

		if part.FormName() != "files" || part.FileName() == "" {
			part.Close()
			continue
		}

		f, err := s.savePart(part)
		part.Close()
		if err != nil {
			s.logger.Error().Err(err).Str("name", part.FileName()).Msg("Failed to store upload")
			http.Error(w, "Upload failed", http.StatusInternalServerError)
			return
		}

		files = append(files, f)
	}

	if len(files) == 0 {
		http.Error(w, "No files uploaded.", http.StatusBadRequest)
		return
	}

	for _, f := range files {
		s.registry.Add(f)
		s.metrics.UploadsReceivedTotal.Inc()
		s.metrics.UploadBytesTotal.Add(float64(f.Size))
	}
	s.bus.Publish(event.Event{Kind: event.KindFilesReceived, Payload: files})

	s.logger.Info().Int("count", len(files)).Str("from", r.RemoteAddr).Msg("Files received")

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Upload success"))
}

// savePart streams one part to disk. A partial file left by a failed
// write is removed so the registry never references it.
func (s *Server) savePart(part *multipart.Part) (received.File, error) {
	name := filepath.Base(part.FileName())
	now := time.Now()
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%d-%s", now.UnixMilli(), name))

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return received.File{}, fmt.Errorf("failed to create %s: %w", path, err)
	}

	size, err := io.Copy(dst, part)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return received.File{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return received.File{
		Name:       name,
		Path:       path,
		Size:       size,
		ReceivedAt: now,
	}, nil
}
