// Package minio stores savegames in a bucket of any S3-compatible service
// reachable through the MinIO client, such as MinIO itself, Ceph or
// SeaweedFS.
//
// The caller owns the client:
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	if err != nil {
//	    return err
//	}
//	mgr := persistence.NewManager(miniostore.NewStore(client, "graphs", "prod/"))
//	name, err := f8.Save(ctx, mgr)
package minio
