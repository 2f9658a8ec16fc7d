// Package s3 stores savegames in Amazon S3.
//
//	st, err := s3.New(ctx, "graphs", s3.WithPrefix("prod/"), s3.WithRegion("eu-central-1"))
//
// Savegames are uploaded in parts by the SDK upload manager. When several
// processes save the same graph, wrap the store in a CommitStore: it moves
// the CURRENT pointer through DynamoDB conditional writes, so a stale
// writer fails instead of silently replacing a newer savegame.
package s3
