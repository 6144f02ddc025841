package httpserver

import (
	"archive/zip"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/yudhap/lanflow/internal/store"
)

// handleDownload streams a single shared file with its display name.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchID")
	fileID := r.PathValue("fileID")

	file, err := s.store.GetFile(batchID, fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if _, berr := s.store.GetBatch(batchID); berr != nil {
				http.Error(w, "Batch not found", http.StatusNotFound)
			} else {
				http.Error(w, "File not found", http.StatusNotFound)
			}
			s.metrics.DownloadErrorsTotal.WithLabelValues("file", "not_found").Inc()
			return
		}
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	src, err := os.Open(file.Path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", file.Path).Msg("Shared file unreadable")
		s.metrics.DownloadErrorsTotal.WithLabelValues("file", "io").Inc()
		http.Error(w, "File unavailable", http.StatusInternalServerError)
		return
	}
	defer src.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	if info, err := src.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}

	if _, err := io.Copy(w, src); err != nil {
		// Transfer already underway; nothing left but to log it.
		s.logger.Warn().Err(err).Str("file", file.Name).Msg("Download interrupted")
		s.metrics.DownloadErrorsTotal.WithLabelValues("file", "io").Inc()
		return
	}

	s.metrics.DownloadsServedTotal.WithLabelValues("file").Inc()
}

// handleDownloadBatch streams a batch as a ZIP built on the fly, no
// intermediate temp file, maximum compression.
func (s *Server) handleDownloadBatch(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchID")

	batch, err := s.store.GetBatch(batchID)
	if err != nil {
		http.Error(w, "Batch not found", http.StatusNotFound)
		s.metrics.DownloadErrorsTotal.WithLabelValues("zip", "not_found").Inc()
		return
	}

	shortID := batchID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "batch-"+shortID+".zip"))

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, file := range batch.Files {
		if err := s.addZipEntry(zw, file); err != nil {
			// Headers are gone; terminating the stream is all we can do.
			s.logger.Error().Err(err).Str("file", file.Name).Str("batchId", batchID).Msg("Batch zip aborted")
			s.metrics.DownloadErrorsTotal.WithLabelValues("zip", "io").Inc()
			return
		}
	}

	if err := zw.Close(); err != nil {
		s.logger.Warn().Err(err).Str("batchId", batchID).Msg("Failed to finish zip stream")
		s.metrics.DownloadErrorsTotal.WithLabelValues("zip", "io").Inc()
		return
	}

	s.metrics.DownloadsServedTotal.WithLabelValues("zip").Inc()
}

func (s *Server) addZipEntry(zw *zip.Writer, file store.FileEntry) error {
	src, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Path, err)
	}
	defer src.Close()

	header := &zip.FileHeader{
		Name:   file.Name,
		Method: zip.Deflate,
	}
	if info, err := src.Stat(); err == nil {
		header.Modified = info.ModTime()
	}

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", file.Name, err)
	}

	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("failed to compress %s: %w", file.Name, err)
	}

	return nil
}
