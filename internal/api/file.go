package api

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize bounds attachments; the server accepts 8 MiB bodies.
const MaxFileSize = 8 << 20

// NewFile builds an attachment from raw bytes. An empty contentType is
// derived from the file extension, then from the content itself.
func NewFile(name, contentType string, data []byte) (*File, error) {
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("file %s is %s, larger than the %s limit", name, FormatSize(int64(len(data))), FormatSize(MaxFileSize))
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &File{
		Name:    filepath.Base(name),
		Content: base64.StdEncoding.EncodeToString(data),
		Type:    contentType,
		Size:    int64(len(data)),
	}, nil
}

// LoadFile reads path into an attachment.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	return NewFile(path, "", data)
}

// FormatSize renders a byte count the way the attachment preview shows it.
func FormatSize(bytes int64) string {
	switch {
	case bytes < 1<<10:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(bytes)/(1<<10))
	case bytes < 1<<30:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1<<20))
	default:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1<<30))
	}
}

// FileCategory groups a MIME type for the attachment preview icon.
func FileCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case contentType == "application/pdf":
		return "pdf"
	case strings.Contains(contentType, "word"):
		return "word"
	case strings.Contains(contentType, "excel"), strings.Contains(contentType, "spreadsheet"):
		return "spreadsheet"
	case strings.Contains(contentType, "powerpoint"), strings.Contains(contentType, "presentation"):
		return "presentation"
	case strings.Contains(contentType, "zip"), strings.Contains(contentType, "compressed"):
		return "archive"
	case strings.Contains(contentType, "text/"):
		return "text"
	case strings.Contains(contentType, "code"), strings.Contains(contentType, "javascript"), strings.Contains(contentType, "json"):
		return "code"
	default:
		return "file"
	}
}
