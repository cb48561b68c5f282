package storage

import (
	"context"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/blobstore/s3"
	"github.com/hupe1980/vsearch/verrors"
)

// Open resolves a CLI-surface URI (--db_uri, --centroids_uri, --index_uri,
// ...) into a blobstore.BlobStore rooted at the URI's directory, plus the
// leaf blob/group name to address within it.
//
// Supported schemes:
//
//	file:///abs/path/to/group   (or a bare path, no scheme)
//	s3://bucket/prefix/group
//
// An s3:// URI's first path segment is the bucket; everything after it up
// to the last segment is the root prefix a Store is opened against, and
// the last segment is returned as name.
func Open(ctx context.Context, uri string) (blobstore.BlobStore, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", verrors.InvalidConfigf("storage: parse URI %q: %v", uri, err)
	}

	switch u.Scheme {
	case "", "file":
		return openFile(u, uri)
	case "s3":
		return openS3(ctx, u)
	default:
		return nil, "", verrors.InvalidConfigf("storage: unsupported URI scheme %q in %q", u.Scheme, uri)
	}
}

// OpenGroup resolves a CLI group URI (--output_uri, --index_uri when it
// names a whole group directory rather than one array) straight to a
// BlobStore rooted at that URI, with no leaf-name splitting — the
// group package addresses its own members by their fixed logical
// names underneath it.
func OpenGroup(ctx context.Context, uri string) (blobstore.BlobStore, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, verrors.InvalidConfigf("storage: parse URI %q: %v", uri, err)
	}

	switch u.Scheme {
	case "", "file":
		path := u.Path
		if path == "" {
			path = uri
		}
		return blobstore.NewLocalStore(path), nil
	case "s3":
		bucket := u.Host
		if bucket == "" {
			return nil, verrors.InvalidConfigf("storage: s3 URI missing bucket: %q", uri)
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, verrors.IoFailuref("storage: load AWS config: %v", err)
		}
		client := awss3.NewFromConfig(cfg)
		return s3.NewStore(client, bucket, strings.TrimPrefix(u.Path, "/")), nil
	default:
		return nil, verrors.InvalidConfigf("storage: unsupported URI scheme %q in %q", u.Scheme, uri)
	}
}

func openFile(u *url.URL, raw string) (blobstore.BlobStore, string, error) {
	path := u.Path
	if path == "" {
		path = raw
	}
	dir, name := splitLast(path)
	if dir == "" {
		dir = "."
	}
	return blobstore.NewLocalStore(dir), name, nil
}

func openS3(ctx context.Context, u *url.URL) (blobstore.BlobStore, string, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, "", verrors.InvalidConfigf("storage: s3 URI missing bucket: %q", u.String())
	}

	prefix, name := splitLast(strings.TrimPrefix(u.Path, "/"))

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, "", verrors.IoFailuref("storage: load AWS config: %v", err)
	}
	client := awss3.NewFromConfig(cfg)

	return s3.NewStore(client, bucket, prefix), name, nil
}

// splitLast splits a slash-separated path into its directory (everything
// but the last segment) and the last segment itself.
func splitLast(path string) (dir, name string) {
	path = strings.TrimRight(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
