package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sequencetheory/sequence-backend/internal/indices"
)

// Archiver implements indices.SnapshotArchiver by uploading every fresh
// index payload as a JSON object. Keys are partitioned by date:
//
//	indices/2026-08-31/daily-1756608000.json
//
// so a day's snapshots can be listed with one prefix query. Archived
// payloads are the raw API responses; nothing is ever read back by the
// service itself.
type Archiver struct {
	client *s3.Client
	bucket string
	now    func() time.Time
}

// NewArchiver creates an Archiver writing to the client's bucket.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{
		client: c.S3(),
		bucket: c.Bucket(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ArchiveIndices uploads the payload computed for the given period.
func (a *Archiver) ArchiveIndices(ctx context.Context, period string, payload *indices.Response) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("s3blob: encode indices payload: %w", err)
	}

	ts := a.now()
	key := fmt.Sprintf("indices/%s/%s-%d.json", ts.Format("2006-01-02"), period, ts.Unix())

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put indices snapshot %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ indices.SnapshotArchiver = (*Archiver)(nil)
