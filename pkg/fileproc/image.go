// File content extraction: images and PDFs.
package fileproc

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	// Register the decoders for every accepted image format.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/mkoyasu/chatto/pkg/models"
)

// DecodeImageBytes decodes an image header and returns the original bytes
// with format and pixel dimensions attached.
func DecodeImageBytes(data []byte) (*models.ChatImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &models.ChatImage{
		Data:   data,
		Format: strings.ToUpper(format),
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// ProcessImage reads an uploaded image and produces the decoded image plus
// the description text embedded into the outgoing user message.
func ProcessImage(name string, r io.Reader) (*models.ChatImage, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read image %s: %w", name, err)
	}

	img, err := DecodeImageBytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("process image %s: %w", name, err)
	}

	description := fmt.Sprintf("画像ファイル: %s\nサイズ: %d x %d ピクセル\nフォーマット: %s",
		name, img.Width, img.Height, img.Format)
	return img, description, nil
}

// ImageMIMEType maps a stored image format tag to its MIME type.
func ImageMIMEType(format string) string {
	switch strings.ToUpper(format) {
	case "PNG":
		return "image/png"
	case "JPEG", "JPG":
		return "image/jpeg"
	case "GIF":
		return "image/gif"
	case "BMP":
		return "image/bmp"
	case "WEBP":
		return "image/webp"
	default:
		return "image/png"
	}
}

// FormatFileContentForAI wraps extracted file content the way the chat
// prompt expects it.
func FormatFileContentForAI(kind, content, fileName string) string {
	switch kind {
	case "pdf":
		return fmt.Sprintf("PDFファイル「%s」の内容:\n\n%s", fileName, content)
	case "image":
		return fmt.Sprintf("画像ファイル「%s」がアップロードされました。この画像について質問してください。", fileName)
	default:
		return fmt.Sprintf("不明なファイル形式: %s", fileName)
	}
}
