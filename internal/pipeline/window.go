package pipeline

import "time"

// Window is the harvest date range: [yesterday 00:00, today 00:00) UTC,
// exactly one full prior day. The bounds go verbatim into the IMAP
// SINCE/BEFORE search and into the archive metadata.
type Window struct {
	Start time.Time
	End   time.Time
}

func CurrentWindow(now time.Time) Window {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{Start: today.AddDate(0, 0, -1), End: today}
}

const dateLayout = "02-Jan-2006"

func (w Window) StartString() string { return w.Start.Format(dateLayout) }
func (w Window) EndString() string   { return w.End.Format(dateLayout) }
