package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object is a listed object. Listing metadata is available immediately; "content" and
// "bytes" fetch the body once, on first use.
//
// Fields: "key", "bucket", "basename", "size", "etag", "last_modified", "content_type"
// (fetched), "content" (alias "contents"), "bytes".
type Object struct {
	client       API
	bucket       string
	key          string
	size         int64
	etag         string
	lastModified time.Time

	body        []byte
	contentType string
	loaded      bool
}

// Field implements ports.Record. Fetch failures read as a missing field; contexts use
// Load instead and fail the record.
func (o *Object) Field(key any) (any, bool) {
	v, ok, err := o.Load(context.Background(), key)
	if err != nil {
		return nil, false
	}
	return v, ok
}

// Load implements ports.LazyRecord.
func (o *Object) Load(ctx context.Context, key any) (any, bool, error) {
	k, ok := key.(string)
	if !ok {
		return nil, false, nil
	}
	switch k {
	case "key":
		return o.key, true, nil
	case "bucket":
		return o.bucket, true, nil
	case "basename":
		return path.Base(o.key), true, nil
	case "size":
		return o.size, true, nil
	case "etag":
		return o.etag, true, nil
	case "last_modified":
		return o.lastModified, true, nil
	case "content", "contents", "bytes", "content_type":
		if err := o.fetch(ctx); err != nil {
			return nil, false, err
		}
		switch k {
		case "bytes":
			return o.body, true, nil
		case "content_type":
			return o.contentType, true, nil
		}
		return string(o.body), true, nil
	}
	return nil, false, nil
}

// Key returns the object key.
func (o *Object) Key() string { return o.key }

func (o *Object) fetch(ctx context.Context) error {
	if o.loaded {
		return nil
	}
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(o.bucket), Key: aws.String(o.key)})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", o.bucket, o.key, err)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("read s3://%s/%s: %w", o.bucket, o.key, err)
	}
	o.body, o.contentType, o.loaded = b, aws.ToString(out.ContentType), true
	return nil
}
