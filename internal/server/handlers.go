package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/signstream/signstream/internal/sign"
)

// maxUploadBytes bounds letter image uploads.
const maxUploadBytes = 10 << 20

type renderRequest struct {
	Text              string  `json:"text"`
	DurationPerLetter float64 `json:"duration_per_letter"`
}

type renderResponse struct {
	*sign.Result
	GIFURL string `json:"gif_url"`
}

// handleRender composites the request text into an animated GIF and returns
// the artifact description.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	duration := req.DurationPerLetter
	if duration <= 0 {
		duration = s.cfg.Signs.DurationPerLetter
	}

	start := time.Now()
	res, err := s.renderer.Render(req.Text, duration)
	s.metrics.RenderDuration.Record(r.Context(), time.Since(start).Seconds())

	if err != nil {
		var missing *sign.MissingLettersError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":     "no sign images for some letters",
				"missing":   missing.Missing,
				"available": missing.Available,
			})
			return
		}
		s.log.Error("render failed", "text", req.Text, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	writeJSON(w, http.StatusOK, renderResponse{
		Result: res,
		GIFURL: "/gifs/" + res.Filename,
	})
}

// handleLettersList returns the letters that currently have a sign image.
func (s *Server) handleLettersList(w http.ResponseWriter, _ *http.Request) {
	letters := s.library.Available()
	writeJSON(w, http.StatusOK, map[string]any{
		"letters": letters,
		"count":   len(letters),
	})
}

// handleLetterPut stores an uploaded sign image for one letter. The image may
// arrive either as a multipart form with an "image" file field or as a raw
// body with an image Content-Type.
func (s *Server) handleLetterPut(w http.ResponseWriter, r *http.Request) {
	letter := r.PathValue("letter")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		src io.Reader
		ext string
	)
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/") {
		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "multipart field \"image\" is required")
			return
		}
		defer file.Close()
		src = file
		ext = strings.ToLower(filepath.Ext(header.Filename))
	} else {
		src = r.Body
		ext = extForContentType(ct)
	}
	if ext == "" {
		writeError(w, http.StatusBadRequest, "could not determine image type; upload a png, jpeg, gif, or bmp")
		return
	}

	if err := s.library.Add(letter, src, ext); err != nil {
		s.log.Warn("letter upload rejected", "letter", letter, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"letter": strings.ToUpper(letter),
		"count":  s.library.Count(),
	})
}

// handleLetterDelete removes the sign image for one letter.
func (s *Server) handleLetterDelete(w http.ResponseWriter, r *http.Request) {
	letter := r.PathValue("letter")
	if _, ok := s.library.Lookup(letter); !ok {
		writeError(w, http.StatusNotFound, "no image for letter "+strings.ToUpper(letter))
		return
	}
	if err := s.library.Remove(letter); err != nil {
		s.log.Error("letter delete failed", "letter", letter, "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"letter": strings.ToUpper(letter),
		"count":  s.library.Count(),
	})
}

type translateRequest struct {
	Text string `json:"text"`
}

// handleTranslate converts text into a timed sign-cue sequence using the
// configured phrase mapping.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.translator == nil {
		writeError(w, http.StatusNotImplemented, "no sign mapping configured")
		return
	}
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	cues := s.translator.Translate(req.Text)
	total := 0.0
	for _, c := range cues {
		total += c.Duration
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":           req.Text,
		"cues":           cues,
		"count":          len(cues),
		"total_duration": total,
	})
}

// handleGIF serves a rendered artifact from the output directory.
func (s *Server) handleGIF(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.Signs.OutputDir, filename))
}

// extForContentType maps an image media type to a library file extension.
func extForContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	switch mt {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
