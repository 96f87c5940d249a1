// Package pipeline drives one account's harvest: open a mailbox session,
// search the date window, classify and dedupe attachments, normalize images,
// and publish up to two archives (pdf, image) to the object store.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mailharvest/internal/account"
	"mailharvest/internal/archive"
	"mailharvest/internal/config"
	"mailharvest/internal/dedup"
	"mailharvest/internal/extract"
	"mailharvest/internal/imap"
	"mailharvest/internal/picture"
	"mailharvest/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Pipeline holds the injected collaborators for harvest runs. One Pipeline
// is safe for concurrent Run calls: all per-run state lives inside Run.
type Pipeline struct {
	Dialer   *imap.Dialer
	Uploader storage.Uploader
	Cfg      config.Config
	Log      zerolog.Logger

	// Now and RunID are overridable in tests.
	Now   func() time.Time
	RunID func() string
}

// Result summarizes one run. A run with zero attachments is a success with
// empty counts, not an error.
type Result struct {
	Messages        int
	SkippedMessages int
	PDFs            int
	Images          int
	DroppedImages   int
	Uploaded        []string
}

func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Run executes the full pipeline for one account. Authentication, connection,
// and search failures abort the run; everything per-message or per-item is
// logged and skipped.
func (p *Pipeline) Run(ctx context.Context, acct account.Record) (Result, error) {
	var res Result

	now := p.Now
	if now == nil {
		now = time.Now
	}
	window := CurrentWindow(now())

	log := p.Log.With().Str("account", acct.OwnerID).Logger()
	log.Info().
		Str("mailbox", p.Cfg.Harvest.Mailbox).
		Str("start_date", window.StartString()).
		Str("end_date", window.EndString()).
		Msg("starting harvest run")

	session, err := p.Dialer.Open(p.Cfg.IMAP, p.Cfg.Harvest.Mailbox, acct.ServiceEmail, acct.EmailKey)
	if err != nil {
		return res, err
	}
	defer session.Close()

	uids, err := session.Search(window.Start, window.End)
	if err != nil {
		return res, err
	}
	log.Info().Int("messages", len(uids)).Msg("search complete")

	seen := dedup.New()
	normalizer := picture.Normalizer{
		Width:  p.Cfg.Harvest.ImageWidth,
		Height: p.Cfg.Harvest.ImageHeight,
	}
	var pdfs, images []archive.Entry

	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		raw, err := session.Fetch(uid)
		if err != nil {
			log.Warn().Uint32("uid", uid).Err(err).Msg("skipping message: fetch failed")
			res.SkippedMessages++
			continue
		}
		attachments, err := extract.Classify(raw)
		if err != nil {
			log.Warn().Uint32("uid", uid).Err(err).Msg("skipping message: classify failed")
			res.SkippedMessages++
			continue
		}
		res.Messages++

		for _, att := range attachments {
			id := att.Identity()
			if !seen.Admit(id) {
				continue
			}

			switch att.Class {
			case extract.ClassPDF:
				pdfs = append(pdfs, archive.Entry{Name: id, Data: att.Data})
				res.PDFs++
			case extract.ClassImage:
				normalized, err := normalizer.Normalize(att.Data)
				if err != nil {
					log.Warn().Str("attachment", id).Err(err).Msg("dropping image")
					res.DroppedImages++
					continue
				}
				images = append(images, archive.Entry{Name: id, Data: normalized})
				res.Images++
			}
		}
	}

	if len(pdfs) == 0 && len(images) == 0 {
		log.Info().Msg("nothing to upload")
		return res, nil
	}

	scratch, err := os.MkdirTemp("", "mailharvest-*")
	if err != nil {
		return res, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	// The two classes publish independently: a failed pdf archive must not
	// block the image archive, and vice versa.
	p.publish(ctx, &res, log, scratch, "pdfs", pdfs, acct, window)
	p.publish(ctx, &res, log, scratch, "images", images, acct, window)

	return res, nil
}

func (p *Pipeline) publish(ctx context.Context, res *Result, log zerolog.Logger,
	scratch, kind string, entries []archive.Entry, acct account.Record, window Window) {
	if len(entries) == 0 {
		log.Info().Str("kind", kind).Msg("no attachments of this class")
		return
	}
	// A cancelled run never publishes a partial archive.
	if ctx.Err() != nil {
		return
	}

	name := fmt.Sprintf("zipped_email_%s_v1.zip", kind)
	path := filepath.Join(scratch, name)
	if err := archive.Build(path, entries); err != nil {
		log.Error().Str("kind", kind).Err(err).Msg("archive build failed")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Error().Str("kind", kind).Err(err).Msg("archive open failed")
		return
	}
	defer f.Close()

	runID := p.RunID
	if runID == nil {
		runID = newRunID
	}
	key := fmt.Sprintf("accounts/%s/zip/%s/%s", acct.OwnerID, runID(), name)
	metadata := map[string]string{
		"tags":        "",
		"customer_id": acct.OwnerID,
		"source":      acct.OwnerEmail,
		"start_date":  window.StartString(),
		"end_date":    window.EndString(),
	}

	if err := p.Uploader.Upload(ctx, p.Cfg.S3.Bucket, key, f, metadata); err != nil {
		log.Error().Str("key", key).Err(err).Msg("upload failed")
		return
	}

	log.Info().Str("key", key).Int("entries", len(entries)).Msg("archive uploaded")
	res.Uploaded = append(res.Uploaded, key)
}
