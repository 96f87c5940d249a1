package account

import (
	"bytes"
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// Fetcher reads one object from the blob store. Satisfied by storage.Client.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

type row struct {
	UserEmail    string `parquet:"user_email"`
	UserID       string `parquet:"user_id"`
	ServiceEmail string `parquet:"service_email"`
	EmailKey     string `parquet:"email_key"`
}

// Load reads the account file and returns one validated Record per row.
// An absent or unreadable object yields zero records and no error; the batch
// simply has nothing to do. A present file with incomplete rows is an error.
func Load(ctx context.Context, fetcher Fetcher, bucket, key string) ([]Record, error) {
	data, err := fetcher.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, nil
	}
	return Decode(data)
}

// Decode parses parquet bytes into account records, failing fast on the
// first row with a missing mandatory column value.
func Decode(data []byte) ([]Record, error) {
	rows, err := parquet.Read[row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse account file: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for i, r := range rows {
		rec := Record{
			OwnerEmail:   r.UserEmail,
			OwnerID:      r.UserID,
			ServiceEmail: r.ServiceEmail,
			EmailKey:     r.EmailKey,
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("account file row %d: %w", i, err)
		}
		records = append(records, rec)
	}

	return records, nil
}
