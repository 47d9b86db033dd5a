// Upload classification by extension and content signature.
package filetype

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mkoyasu/chatto/pkg/utils"
)

// Kind is the classification verdict for an uploaded file.
type Kind string

const (
	KindImage   Kind = "image"
	KindPDF     Kind = "pdf"
	KindUnknown Kind = "unknown"
)

// sniffLen is how much of the blob the content gate inspects.
const sniffLen = 2048

// extensionKind maps each accepted extension to the kind it claims.
var extensionKind = map[string]Kind{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".webp": KindImage,
	".pdf":  KindPDF,
}

// acceptedMIME is the set of true content types the content gate accepts.
var acceptedMIME = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/gif":       {},
	"image/bmp":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// Classify determines a file's kind. The extension gate runs first as a
// cheap reject; a disallowed extension short-circuits to unknown without
// touching the blob. When a blob is supplied its magic bytes must also
// match an accepted type, so a renamed executable with a .png extension
// does not pass. A nil blob means extension-only mode. The blob position
// is restored to the start on every path.
func Classify(filename string, blob io.ReadSeeker) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := extensionKind[ext]
	if !ok {
		utils.GetLogger().Warn("rejected upload by extension", "file", filename, "ext", ext)
		return KindUnknown
	}

	if blob == nil {
		return kind
	}
	if !contentGate(filename, blob) {
		return KindUnknown
	}
	return kind
}

// contentGate sniffs the first sniffLen bytes and reports whether the
// detected MIME type is in the accepted set.
func contentGate(filename string, blob io.ReadSeeker) bool {
	logger := utils.GetLogger()

	defer func() {
		if _, err := blob.Seek(0, io.SeekStart); err != nil {
			logger.Warn("failed to rewind upload stream", "file", filename, "error", err)
		}
	}()

	if _, err := blob.Seek(0, io.SeekStart); err != nil {
		logger.Warn("upload stream not seekable", "file", filename, "error", err)
		return false
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(blob, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		logger.Warn("failed to read upload header", "file", filename, "error", err)
		return false
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	mime := strings.ToLower(detected.String())
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if _, ok := acceptedMIME[mime]; !ok {
		logger.Warn("rejected upload by content signature", "file", filename, "detected", mime)
		return false
	}
	return true
}
