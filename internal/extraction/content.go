package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"

	"compliance-backend/internal/shared/storage/object"
)

const (
	mimePDF         = "application/pdf"
	maxContentBytes = 25 << 20
)

// Content is a document's bytes plus the text layer when one exists.
type Content struct {
	Data        []byte
	ContentType string
	Text        string
}

// IsImage reports whether the content should be sent as an image.
func (c Content) IsImage() bool {
	return strings.HasPrefix(c.ContentType, "image/")
}

// LoadContent reads a source from the object store. PDFs get their text
// extracted; images are returned as-is.
func LoadContent(ctx context.Context, store object.Store, src Source) (Content, error) {
	if err := ctx.Err(); err != nil {
		return Content{}, err
	}
	body, err := store.Open(ctx, src.Key)
	if err != nil {
		return Content{}, fmt.Errorf("open key=%s: %w", src.Key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxContentBytes+1))
	if err != nil {
		return Content{}, fmt.Errorf("read key=%s: %w", src.Key, err)
	}
	if len(data) > maxContentBytes {
		return Content{}, fmt.Errorf("key=%s exceeds %d bytes", src.Key, maxContentBytes)
	}

	ct := normalizeContentType(src.ContentType, data)
	c := Content{Data: data, ContentType: ct}
	if ct == mimePDF {
		text, err := pdfText(data)
		if err != nil {
			return Content{}, fmt.Errorf("pdf text key=%s: %w", src.Key, err)
		}
		c.Text = text
	}
	return c, nil
}

func normalizeContentType(declared string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if clean == "" || clean == "application/octet-stream" {
		clean = strings.Split(http.DetectContentType(data), ";")[0]
	}
	return clean
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
