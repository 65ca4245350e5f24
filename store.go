package prms

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Store reads and writes parameter artifacts in a blob bucket: catalog
// definitions, regional dimension fragments, paramDb files and
// compressed snapshots of a whole collection.
type Store struct {
	bucket *blob.Bucket
}

// OpenStore opens the bucket at url, e.g. "file:///data/prms" or "mem://".
func OpenStore(ctx context.Context, url string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %s", url)
	}
	return &Store{bucket: bucket}, nil
}

// NewStore wraps an open bucket. Closing the store closes the bucket.
func NewStore(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

func (s *Store) Close() error {
	return s.bucket.Close()
}

func (s *Store) open(ctx context.Context, key string) (*blob.Reader, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errors.Wrapf(ErrNotFound, "blob %s", key)
		}
		return nil, errors.Wrapf(err, "failed to open %s", key)
	}
	return r, nil
}

func (s *Store) write(ctx context.Context, key string, fn func(io.Writer) error) (err error) {
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", key)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to write %s", key)
		}
	}()
	return fn(w)
}

// LoadCatalog reads a catalog definition document.
func (s *Store) LoadCatalog(ctx context.Context, key string) (*Catalog, error) {
	r, err := s.open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	c, err := LoadCatalog(r)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", key)
	}
	logger.Debug("loaded catalog", zap.String("key", key), zap.Int("parameters", c.Len()))
	return c, nil
}

// MergeDimensions merges the dimension fragments stored under keys into
// dims, in order. Sizes of non-reserved dimensions accumulate.
func (s *Store) MergeDimensions(ctx context.Context, dims *Dimensions, keys ...string) (Diagnostics, error) {
	var diags Diagnostics
	for _, key := range keys {
		d, err := s.mergeDimensions(ctx, dims, key)
		diags = append(diags, d...)
		if err != nil {
			return diags, err
		}
	}
	return diags, nil
}

func (s *Store) mergeDimensions(ctx context.Context, dims *Dimensions, key string) (Diagnostics, error) {
	r, err := s.open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	diags, err := dims.AddFromXML(r)
	if err != nil {
		return diags, errors.Wrapf(err, "dimensions %s", key)
	}
	return diags, nil
}

// RegionKeys lists the keys under prefix that end in suffix, in bucket
// order. It is used to collect the regional fragments of one kind.
func (s *Store) RegionKeys(ctx context.Context, prefix, suffix string) ([]string, error) {
	var keys []string
	it := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list %s", prefix)
		}
		if !obj.IsDir && strings.HasSuffix(obj.Key, suffix) {
			keys = append(keys, obj.Key)
		}
	}
}

// WriteParamDB writes p in paramDb form to key.
func (s *Store) WriteParamDB(ctx context.Context, key string, p *Parameter) error {
	text, err := p.ToParamDB()
	if err != nil {
		return err
	}
	return s.write(ctx, key, func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	})
}

// WriteSnapshot writes the collection as zstd-compressed JSON.
func (s *Store) WriteSnapshot(ctx context.Context, key string, ps *Parameters) error {
	return s.write(ctx, key, func(w io.Writer) error {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return errors.Wrap(err, "failed to create zstd writer")
		}
		if err := json.NewEncoder(enc).Encode(ps.ToStructure()); err != nil {
			enc.Close()
			return errors.Wrapf(err, "failed to encode snapshot %s", key)
		}
		return enc.Close()
	})
}

// ReadSnapshot reads a collection written by WriteSnapshot.
func (s *Store) ReadSnapshot(ctx context.Context, key string, opts ...Option) (*Parameters, Diagnostics, error) {
	r, err := s.open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create zstd reader")
	}
	defer dec.Close()
	var structs []Structure
	if err := json.NewDecoder(dec).Decode(&structs); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to decode snapshot %s", key)
	}
	ps := NewParameters(opts...)
	diags, err := ps.FromStructure(structs)
	if err != nil {
		return nil, diags, err
	}
	return ps, diags, nil
}
