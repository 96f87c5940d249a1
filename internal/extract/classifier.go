// Package extract walks a raw message's MIME part tree and yields the
// attachments worth archiving, classified as PDF or image.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"

	// Decode non-UTF-8 headers and bodies (windows-1252, iso-8859-*, ...).
	_ "github.com/emersion/go-message/charset"
)

type Class int

const (
	ClassPDF Class = iota
	ClassImage
)

func (c Class) String() string {
	if c == ClassPDF {
		return "pdf"
	}
	return "image"
}

// Attachment is one candidate pulled out of a message. Date is the message's
// Date header at day granularity, shared by every part of that message.
type Attachment struct {
	Date     string // 2006-01-02
	Filename string
	Class    Class
	Data     []byte
}

// Identity is the per-run deduplication key. Two messages attaching the same
// filename on different days are distinct; the same filename twice in one
// day is not.
func (a Attachment) Identity() string {
	return a.Date + "_" + a.Filename
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// Classify parses raw RFC822 bytes and returns attachment candidates in
// part-tree walk order (depth-first, document order), which downstream
// first-wins deduplication relies on. A missing or unparsable Date header is
// an error for the whole message; the caller skips it and carries on.
func Classify(raw []byte) ([]Attachment, error) {
	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	date, err := reader.Header.Date()
	if err != nil {
		return nil, fmt.Errorf("parse Date header: %w", err)
	}
	day := date.Format("2006-01-02")

	var attachments []Attachment
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}

		// Both *mail.AttachmentHeader and *mail.InlineHeader embed
		// message.Header, so the entity accessors are promoted.
		h, ok := part.Header.(entityHeader)
		if !ok {
			continue
		}

		contentType, ctParams, err := h.ContentType()
		if err != nil {
			continue
		}
		maintype, _, _ := strings.Cut(contentType, "/")
		if maintype != "application" && maintype != "image" {
			continue
		}

		filename := partFilename(h, ctParams)
		if filename == "" {
			continue
		}

		class, ok := classify(filename)
		if !ok {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", filename, err)
		}

		attachments = append(attachments, Attachment{
			Date:     day,
			Filename: filename,
			Class:    class,
			Data:     data,
		})
	}

	return attachments, nil
}

type entityHeader interface {
	ContentType() (string, map[string]string, error)
	ContentDisposition() (string, map[string]string, error)
}

// partFilename resolves the declared filename of a leaf part: the
// Content-Disposition filename when present, else the Content-Type name
// parameter (common for inline images).
func partFilename(h entityHeader, ctParams map[string]string) string {
	if _, params, err := h.ContentDisposition(); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	return ctParams["name"]
}

func classify(filename string) (Class, bool) {
	switch ext := strings.ToLower(filepath.Ext(filename)); {
	case ext == ".pdf":
		return ClassPDF, true
	case imageExts[ext]:
		return ClassImage, true
	default:
		return 0, false
	}
}
