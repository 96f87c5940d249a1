// Package imap provides the mailbox session used by a harvest run: one
// authenticated connection, a date-window search, raw message fetches, and a
// guaranteed logout.
package imap

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"mailharvest/internal/config"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
)

var (
	// ErrConnect covers network and TLS failures while dialing. Fatal to the run.
	ErrConnect = errors.New("imap: connection failed")
	// ErrAuth covers rejected credentials. Fatal to the run.
	ErrAuth = errors.New("imap: authentication failed")
	// ErrSearch covers a rejected SEARCH. Fatal to the run.
	ErrSearch = errors.New("imap: search failed")
	// ErrFetch covers a single failed message fetch, e.g. a concurrent
	// expunge. Recoverable: the run skips that message.
	ErrFetch = errors.New("imap: fetch failed")
)

// Client is the subset of the go-imap client a harvest session needs.
type Client interface {
	Login(username, password string) error
	Logout() error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
}

// Dialer opens sessions. Connect is injectable so tests can supply a mock
// client without a network.
type Dialer struct {
	Connect func(cfg config.IMAPConfig, username, password string) (Client, error)
}

func NewDialer() *Dialer {
	return &Dialer{Connect: Connect}
}

func Connect(cfg config.IMAPConfig, username, password string) (Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var c *imapclient.Client
	var err error

	if cfg.TLS {
		tlsConfig := &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}
		c, err = imapclient.DialTLS(addr, tlsConfig)
	} else {
		c, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnect, addr, err)
	}

	if err := c.Login(username, password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("%w: %s: %v", ErrAuth, username, err)
	}

	return c, nil
}

// Session is a scoped resource: callers must Close on every exit path.
type Session struct {
	client  Client
	mailbox string
}

// Open connects, authenticates, and selects the mailbox read-only.
func (d *Dialer) Open(cfg config.IMAPConfig, mailbox, username, password string) (*Session, error) {
	connect := d.Connect
	if connect == nil {
		connect = Connect
	}

	client, err := connect(cfg, username, password)
	if err != nil {
		return nil, err
	}

	if _, err := client.Select(mailbox, true); err != nil {
		_ = client.Logout()
		return nil, fmt.Errorf("%w: select %s: %v", ErrConnect, mailbox, err)
	}

	return &Session{client: client, mailbox: mailbox}, nil
}

// Search returns UIDs of messages received in [since, before), ascending.
// go-imap formats both bounds as date-only DD-Mon-YYYY on the wire.
func (s *Session) Search(since, before time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	criteria.Before = before

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// Fetch returns the raw RFC822 bytes of one message.
func (s *Session) Fetch(uid uint32) ([]byte, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem()}

	ch := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, ch)
	}()
	msg := <-ch
	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: uid %d: %v", ErrFetch, uid, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: uid %d not found", ErrFetch, uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("%w: uid %d body not available", ErrFetch, uid)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: uid %d: %v", ErrFetch, uid, err)
	}
	return data, nil
}

func (s *Session) Close() error {
	return s.client.Logout()
}
