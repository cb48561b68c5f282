// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	client := awss3.NewFromConfig(cfg)
//	store := s3.NewStore(client, "my-bucket", "groups/wiki-768/")
//
//	err := group.WriteIVF(ctx, store, g)
//	...
//	g, err := group.ReadIVF(ctx, store, group.CurrentVersion)
//
// # Features
//
//   - Range reads for efficient partial fetches of large arrays
//   - Multipart uploads for large vector and adjacency blobs, with a CRC32C
//     trailing checksum on every part
//   - Automatic pagination for listing group contents
//   - Configurable root prefix for multi-group isolation within a bucket
package s3
