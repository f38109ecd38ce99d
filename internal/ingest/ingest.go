// Package ingest turns user supplied text and files into bills.
package ingest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/pdfextract"
)

// MaxFileSize is the largest accepted upload.
const MaxFileSize = 10 << 20

// ErrFileTooLarge means the upload exceeds [MaxFileSize].
var ErrFileTooLarge = errors.NewSentinel("file exceeds 10 MiB")

var textExtensions = []string{".txt", ".md", ".markdown"}

// PDFExtractor converts PDF documents to text.
type PDFExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (pdfextract.Result, error)
}

// Ingester creates bills.
type Ingester struct {
	extractor PDFExtractor
	now       func() time.Time
	logger    *slog.Logger
}

// NewIngester creates an Ingester. extractor may be nil in which case PDF uploads fail with
// [models.ErrConfiguration].
func NewIngester(logger *slog.Logger, extractor PDFExtractor) *Ingester {
	return &Ingester{
		extractor: extractor,
		now:       time.Now,
		logger:    logger,
	}
}

// FromText creates a bill from text. Blank text is an [models.ErrEmptyInput].
func (in *Ingester) FromText(text string, source models.BillSource) (models.Bill, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return models.Bill{}, errors.Mark(models.ErrEmptyInput, errors.New("ingest text",
			slog.String("source", string(source))))
	}
	return models.Bill{
		ID:         uuid.NewString(),
		Title:      ExtractTitle(content),
		Content:    content,
		Source:     source,
		UploadedAt: in.now(),
		KeyPoints:  nil,
	}, nil
}

// FromFile creates a bill from an uploaded file. PDFs go through the PDF extractor, plain text and markdown
// are read as is, anything else is an [models.ErrUnsupportedFormat].
func (in *Ingester) FromFile(ctx context.Context, filename string, r io.Reader) (models.Bill, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return models.Bill{}, errors.Wrap(err, "read upload", slog.String("filename", filename))
	}
	if len(data) > MaxFileSize {
		return models.Bill{}, errors.Wrap(ErrFileTooLarge, "read upload", slog.String("filename", filename))
	}

	mtype := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(filename))
	in.logger.LogAttrs(ctx, slog.LevelDebug, "detected upload type",
		slog.String("filename", filename), slog.String("mime", mtype.String()), slog.Int("size", len(data)))

	switch {
	case mtype.Is("application/pdf"):
		return in.fromPDF(ctx, filename, data)
	case mtype.Is("text/plain") || slices.Contains(textExtensions, ext):
		return in.FromText(string(data), models.BillSourceTextFile)
	default:
		return models.Bill{}, errors.Mark(models.ErrUnsupportedFormat, errors.New("ingest file",
			slog.String("filename", filename), slog.String("mime", mtype.String())))
	}
}

func (in *Ingester) fromPDF(ctx context.Context, filename string, data []byte) (models.Bill, error) {
	if in.extractor == nil {
		return models.Bill{}, errors.Mark(models.ErrConfiguration, errors.New("pdf extraction not configured"))
	}
	result, err := in.extractor.Extract(ctx, filename, data)
	if err != nil {
		return models.Bill{}, errors.Wrap(err, "extract pdf", slog.String("filename", filename))
	}
	return in.FromText(result.Text, models.BillSourcePDF)
}
