//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of Sitrep.
//
// Sitrep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Sitrep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Sitrep. If not, see https://www.gnu.org/licenses/.

package writers

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3UploaderError wraps upload failures with the object key.
type S3UploaderError struct {
	Op  string
	Key string
	Err error
}

func (e *S3UploaderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 uploader %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3 uploader %s: %v", e.Op, e.Err)
}

func (e *S3UploaderError) Unwrap() error {
	return e.Err
}

// S3PutAPI is the subset of the S3 client the uploader needs.
type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies emitted files to a bucket under a key prefix.
type S3Uploader struct {
	client S3PutAPI
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader. prefix may be empty.
func NewS3Uploader(client S3PutAPI, bucket, prefix string) (*S3Uploader, error) {
	if client == nil {
		return nil, &S3UploaderError{Op: "configure", Err: fmt.Errorf("client is required")}
	}
	if bucket == "" {
		return nil, &S3UploaderError{Op: "configure", Err: fmt.Errorf("bucket is required")}
	}
	return &S3Uploader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Key returns the object key used for a file name relative to the output root.
func (u *S3Uploader) Key(rel string) string {
	rel = filepath.ToSlash(rel)
	if u.prefix == "" {
		return rel
	}
	return path.Join(u.prefix, rel)
}

// UploadFile puts the file at localPath under Key(rel) and returns the key.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath, rel string) (string, error) {
	key := u.Key(rel)

	f, err := os.Open(localPath)
	if err != nil {
		return "", &S3UploaderError{Op: "open", Key: key, Err: err}
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", &S3UploaderError{Op: "put_object", Key: key, Err: err}
	}
	return key, nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".jsonl":
		return "application/x-ndjson"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
