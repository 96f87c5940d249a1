package extract

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestClassifyNestedMultipart(t *testing.T) {
	pdfPayload := []byte("%PDF-1.4 fake content")
	raw := crlf(`From: sender@example.com
To: svc@example.com
Subject: receipts
Date: Mon, 01 Jan 2024 10:30:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: text/plain

see attached
--outer
Content-Type: application/pdf; name="invoice.pdf"
Content-Disposition: attachment; filename="invoice.pdf"
Content-Transfer-Encoding: base64

` + base64.StdEncoding.EncodeToString(pdfPayload) + `
--outer
Content-Type: multipart/related; boundary="inner"

--inner
Content-Type: image/jpeg
Content-Disposition: inline; filename="photo.JPG"

jpegbytes
--inner--
--outer--
`)

	attachments, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(attachments))
	}

	pdf := attachments[0]
	if pdf.Class != ClassPDF || pdf.Filename != "invoice.pdf" {
		t.Fatalf("unexpected first attachment: %+v", pdf)
	}
	if pdf.Date != "2024-01-01" {
		t.Fatalf("unexpected date: %s", pdf.Date)
	}
	if pdf.Identity() != "2024-01-01_invoice.pdf" {
		t.Fatalf("unexpected identity: %s", pdf.Identity())
	}
	if !bytes.Equal(pdf.Data, pdfPayload) {
		t.Fatalf("base64 payload not decoded: %q", pdf.Data)
	}

	img := attachments[1]
	if img.Class != ClassImage || img.Filename != "photo.JPG" {
		t.Fatalf("expected nested inline image, got %+v", img)
	}
}

func TestClassifyIgnoresOtherParts(t *testing.T) {
	raw := crlf(`From: sender@example.com
Date: Tue, 02 Jan 2024 08:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: text/plain; name="notes.pdf"
Content-Disposition: attachment; filename="notes.pdf"

text maintype is not harvested
--b
Content-Type: application/octet-stream
Content-Disposition: attachment; filename="data.xyz"

unknown suffix
--b
Content-Type: application/pdf

no filename
--b--
`)

	attachments, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(attachments) != 0 {
		t.Fatalf("expected no attachments, got %+v", attachments)
	}
}

func TestClassifyMissingDateFails(t *testing.T) {
	raw := crlf(`From: sender@example.com
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: application/pdf
Content-Disposition: attachment; filename="invoice.pdf"

%PDF
--b--
`)

	if _, err := Classify(raw); err == nil {
		t.Fatalf("expected error for missing Date header")
	}
}

func TestClassifyDuplicatePartsKeptInWalkOrder(t *testing.T) {
	raw := crlf(`From: sender@example.com
Date: Wed, 03 Jan 2024 12:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: image/png
Content-Disposition: attachment; filename="receipt.png"

first
--b
Content-Type: image/png
Content-Disposition: attachment; filename="receipt.png"

second
--b--
`)

	attachments, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(attachments) != 2 {
		t.Fatalf("classifier must not dedupe, got %d", len(attachments))
	}
	if string(attachments[0].Data) != "first" {
		t.Fatalf("walk order broken: %q", attachments[0].Data)
	}
	if attachments[0].Identity() != attachments[1].Identity() {
		t.Fatalf("duplicate parts should share an identity")
	}
}

func TestClassifyInlineImageByContentTypeName(t *testing.T) {
	raw := crlf(`From: sender@example.com
Date: Thu, 04 Jan 2024 12:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: image/gif; name="banner.gif"

gifbytes
--b--
`)

	attachments, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(attachments) != 1 || attachments[0].Filename != "banner.gif" {
		t.Fatalf("expected content-type name fallback, got %+v", attachments)
	}
	if attachments[0].Class != ClassImage {
		t.Fatalf("expected image class")
	}
}
