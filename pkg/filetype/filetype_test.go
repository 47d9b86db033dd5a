package filetype

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
)

func pngBlob(t *testing.T) *bytes.Reader {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestClassify_ExtensionOnly(t *testing.T) {
	cases := []struct {
		filename string
		want     Kind
	}{
		{"photo.png", KindImage},
		{"photo.JPG", KindImage},
		{"scan.jpeg", KindImage},
		{"anim.gif", KindImage},
		{"pic.bmp", KindImage},
		{"pic.webp", KindImage},
		{"doc.pdf", KindPDF},
		{"doc.PDF", KindPDF},
		{"run.exe", KindUnknown},
		{"notes.txt", KindUnknown},
		{"noextension", KindUnknown},
		{"", KindUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.filename, nil); got != c.want {
			t.Fatalf("Classify(%q, nil) = %v, want %v", c.filename, got, c.want)
		}
	}
}

func TestClassify_ExtensionGateShortCircuits(t *testing.T) {
	// Real PNG bytes behind a disallowed extension: content must never
	// override the extension reject.
	blob := pngBlob(t)
	if got := Classify("photo.exe", blob); got != KindUnknown {
		t.Fatalf("Classify(photo.exe) = %v, want unknown", got)
	}
}

func TestClassify_ContentGateAccepts(t *testing.T) {
	blob := pngBlob(t)
	if got := Classify("photo.png", blob); got != KindImage {
		t.Fatalf("Classify(photo.png) = %v, want image", got)
	}
}

func TestClassify_ContentGateRejectsMismatch(t *testing.T) {
	// Text bytes claiming to be an image.
	blob := bytes.NewReader([]byte("MZ this is actually something else entirely"))
	if got := Classify("photo.png", blob); got != KindUnknown {
		t.Fatalf("Classify(fake png) = %v, want unknown", got)
	}
}

func TestClassify_PDFByContent(t *testing.T) {
	blob := bytes.NewReader([]byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"))
	if got := Classify("report.pdf", blob); got != KindPDF {
		t.Fatalf("Classify(report.pdf) = %v, want pdf", got)
	}
}

func TestClassify_RestoresStreamPosition(t *testing.T) {
	blob := pngBlob(t)
	if _, err := blob.Seek(5, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}

	Classify("photo.png", blob)

	pos, err := blob.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("tell: %v", err)
	}
	if pos != 0 {
		t.Fatalf("stream position = %d after Classify, want 0", pos)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	blob := pngBlob(t)
	first := Classify("photo.png", blob)
	second := Classify("photo.png", blob)
	if first != second {
		t.Fatalf("classification not stable: %v then %v", first, second)
	}
}
