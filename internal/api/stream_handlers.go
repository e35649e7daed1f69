package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/151henry151/rompmusic-server/internal/http/response"
)

// handleStreamTrack streams a track's audio file with HTTP Range support for
// seeking. Track lookup happens before any filesystem access, so unknown IDs
// never touch the disk.
// GET /api/v1/stream/{id}
func (s *Server) handleStreamTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.store.GetTrack(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	path, ok := s.resolveLibraryPath(track.FilePath)
	if !ok {
		s.logger.Error("Track path escapes library root", "track_id", track.ID, "path", track.FilePath)
		response.NotFound(w, "Track file not found", s.logger)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Error("Audio file missing from disk", "track_id", track.ID, "path", path)
		response.NotFound(w, "Track file not found on disk", s.logger)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		response.NotFound(w, "Track file not found on disk", s.logger)
		return
	}
	size := info.Size()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", track.MIMEType)
	w.Header().Set("Cache-Control", "private, max-age=86400")

	br, partial, err := parseByteRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if !partial {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, f)
		}
		return
	}

	if _, err := f.Seek(br.start, io.SeekStart); err != nil {
		s.logger.Error("Seek failed", "track_id", track.ID, "error", err)
		response.InternalError(w, "Failed to read track file", s.logger)
		return
	}

	w.Header().Set("Content-Range",
		"bytes "+strconv.FormatInt(br.start, 10)+"-"+strconv.FormatInt(br.end, 10)+"/"+strconv.FormatInt(size, 10))
	w.Header().Set("Content-Length", strconv.FormatInt(br.length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		io.CopyN(w, f, br.length())
	}
}

// resolveLibraryPath joins a stored relative track path onto the library root
// and rejects anything that resolves outside it.
func (s *Server) resolveLibraryPath(relPath string) (string, bool) {
	root := s.scanner.Root()
	path := filepath.Join(root, filepath.FromSlash(relPath))

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}
