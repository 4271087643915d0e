/*
Package blob provides a storage.KeyValueDB over a Go CDK blob bucket, so label
arrays and scratch entries can be kept in a local directory, in memory, or in a
cloud bucket.  Import it for its side effect of registering the "blob" engine.

Keys are hex-encoded into object names, which keeps listing order identical to
byte order.
*/
package blob

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blang/semver"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/storage"
)

func init() {
	ver, err := semver.Make("0.1.0")
	if err != nil {
		dvid.Errorf("Unable to make semver in blob engine: %v\n", err)
	}
	storage.RegisterEngine(Engine{"blob", "Go CDK bucket (mem://, file path, gs://)", ver})
}

type Engine struct {
	name   string
	desc   string
	semver semver.Version
}

func (e Engine) GetName() string {
	return e.name
}

func (e Engine) GetDescription() string {
	return e.desc
}

func (e Engine) GetSemVer() semver.Version {
	return e.semver
}

func (e Engine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

// NewStore opens the bucket given by either a "path" setting (a local directory,
// created if needed) or a "bucket" reference like "mem://" or "gs://<bucketname>".
// An optional "prefix" setting confines the store to a subtree of the bucket.
func (e Engine) NewStore(config dvid.StoreConfig) (storage.KeyValueDB, bool, error) {
	ctx := context.Background()
	path, _, err := config.GetString("path")
	if err != nil {
		return nil, false, err
	}
	ref, _, err := config.GetString("bucket")
	if err != nil {
		return nil, false, err
	}
	prefix, _, err := config.GetString("prefix")
	if err != nil {
		return nil, false, err
	}

	var bucket *blob.Bucket
	var created bool
	switch {
	case path != "" && ref != "":
		return nil, false, fmt.Errorf("blob store takes either %q or %q, not both", "path", "bucket")
	case path != "":
		if _, err := os.Stat(path); os.IsNotExist(err) {
			created = true
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, false, fmt.Errorf("can't make directory at %s: %v", path, err)
			}
		}
		if bucket, err = fileblob.OpenBucket(path, nil); err != nil {
			return nil, false, err
		}
		ref = path
	case ref != "":
		if bucket, err = OpenBucket(ctx, ref); err != nil {
			return nil, false, err
		}
		created = strings.HasPrefix(ref, "mem://")
	default:
		return nil, false, fmt.Errorf("blob store needs a %q or %q setting", "path", "bucket")
	}
	if prefix != "" {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		bucket = blob.PrefixedBucket(bucket, prefix)
	}
	return &DB{ref: ref, prefix: prefix, bucket: bucket}, created, nil
}

// OpenBucket returns a blob.Bucket for the given reference.
// The reference should be of the form:
//
//	gs://<bucketname>
//	mem://
//	file:///<path>
func OpenBucket(ctx context.Context, ref string) (*blob.Bucket, error) {
	if !strings.HasPrefix(ref, "gs://") {
		bucket, err := blob.OpenBucket(ctx, ref)
		if err != nil {
			dvid.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		return bucket, nil
	}

	// Default to Google application credentials.
	// See https://cloud.google.com/docs/authentication/production
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(strings.TrimPrefix(ref, "gs://"), "/")
	bucket, err := gcsblob.OpenBucket(ctx, client, name, nil)
	if err != nil {
		dvid.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
		return nil, err
	}
	return bucket, nil
}

// DB is a storage.KeyValueDB with one object per key.
type DB struct {
	ref    string
	prefix string
	bucket *blob.Bucket
}

func (db *DB) String() string {
	if db.prefix != "" {
		return fmt.Sprintf("blob @ %s [%s]", db.ref, db.prefix)
	}
	return fmt.Sprintf("blob @ %s", db.ref)
}

func objectName(k []byte) string {
	return hex.EncodeToString(k)
}

func (db *DB) Get(ctx context.Context, k []byte) ([]byte, error) {
	v, err := db.bucket.ReadAll(ctx, objectName(k))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (db *DB) Put(ctx context.Context, k, v []byte) error {
	opts := &blob.WriterOptions{ContentType: "application/octet-stream"}
	return db.bucket.WriteAll(ctx, objectName(k), v, opts)
}

func (db *DB) Delete(ctx context.Context, k []byte) error {
	err := db.bucket.Delete(ctx, objectName(k))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

// listKeys returns the keys under prefix in ascending order.
func (db *DB) listKeys(ctx context.Context, prefix []byte) ([][]byte, error) {
	iter := db.bucket.List(&blob.ListOptions{Prefix: objectName(prefix)})
	var keys [][]byte
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}
		if obj.IsDir {
			continue
		}
		k, err := hex.DecodeString(obj.Key)
		if err != nil {
			dvid.Debugf("Skipping non-key object %q in %s\n", obj.Key, db)
			continue
		}
		keys = append(keys, k)
	}
}

// ProcessPrefix lists the keys first, then reads each object, so f may modify the
// store.  Keys deleted between listing and reading are skipped.
func (db *DB) ProcessPrefix(ctx context.Context, prefix []byte, f func(k, v []byte) error) error {
	keys, err := db.listKeys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		v, err := db.Get(ctx, k)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if err := f(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) DeletePrefix(ctx context.Context, prefix []byte) error {
	keys, err := db.listKeys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := db.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.bucket.Close()
}
