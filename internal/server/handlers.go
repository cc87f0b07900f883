package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/notify"
)

// handleIndex serves the live page, or sends the browser to sign in once
// the chat server has asked for it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if target := s.page.RedirectURL(); target != "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	doc, err := s.page.HTML()
	if err != nil {
		s.logger.Error().Err(err).Msg("rendering page")
		writeError(w, http.StatusInternalServerError, "rendering page failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, doc)
}

// handleAttachment accepts the file picked in the browser as the pending
// attachment.
func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, api.MaxFileSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.rejectAttachment(w, http.StatusRequestEntityTooLarge, "File is too large (max "+api.FormatSize(api.MaxFileSize)+")")
			return
		}
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, api.MaxFileSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}
	f, err := api.NewFile(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.rejectAttachment(w, http.StatusRequestEntityTooLarge, "File is too large (max "+api.FormatSize(api.MaxFileSize)+")")
		return
	}
	if err := s.ctrl.AttachFile(f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name": f.Name,
		"type": f.Type,
		"size": f.Size,
	})
}

func (s *Server) rejectAttachment(w http.ResponseWriter, status int, message string) {
	if s.notifier != nil {
		s.notifier.Send(message, notify.KindError)
	}
	writeError(w, status, message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
