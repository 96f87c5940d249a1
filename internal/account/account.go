// Package account defines the mailbox account records processed by a batch
// and loads them from the parquet account file in the object store.
package account

import "fmt"

// Record identifies one mailbox to harvest. OwnerEmail is the customer's own
// address, ServiceEmail/EmailKey are the credentials of the inbox that
// receives forwarded mail for that customer.
type Record struct {
	OwnerEmail   string
	OwnerID      string
	ServiceEmail string
	EmailKey     string
}

func (r Record) Validate() error {
	if r.OwnerEmail == "" {
		return fmt.Errorf("account record: user_email is empty")
	}
	if r.OwnerID == "" {
		return fmt.Errorf("account record %s: user_id is empty", r.OwnerEmail)
	}
	if r.ServiceEmail == "" {
		return fmt.Errorf("account record %s: service_email is empty", r.OwnerEmail)
	}
	if r.EmailKey == "" {
		return fmt.Errorf("account record %s: email_key is empty", r.OwnerEmail)
	}
	return nil
}
