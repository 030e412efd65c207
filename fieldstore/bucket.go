/*
Copyright © 2024 the RUQ authors.
This file is part of RUQ.

RUQ is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RUQ is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RUQ.  If not, see <http://www.gnu.org/licenses/>.
*/

package fieldstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// OpenBucket returns the blob storage bucket specified by location and the
// key prefix within it. location is either a local directory, which is
// created if it does not exist, or a URL in the format
// 'provider://name/prefix'. The accepted providers are "file" for the
// local filesystem, "gs" for Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, location string) (bucket *blob.Bucket, prefix string, err error) {
	if !strings.Contains(location, "://") {
		bucket, err = dirBucket(location)
		return bucket, "", err
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, "", fmt.Errorf("fieldstore: parsing location: %v", err)
	}
	prefix = strings.Trim(u.Path, "/")
	switch u.Scheme {
	case "file":
		bucket, err = dirBucket(filepath.Join(u.Host, filepath.FromSlash(u.Path)))
		return bucket, "", err
	case "gs":
		bucket, err = gsBucket(ctx, u.Host)
	case "s3":
		bucket, err = s3Bucket(ctx, u.Host)
	default:
		return nil, "", fmt.Errorf("fieldstore: invalid storage provider %q", u.Scheme)
	}
	return bucket, prefix, err
}

// dirBucket opens a bucket in local directory dir, creating the
// directory first if necessary.
func dirBucket(dir string) (*blob.Bucket, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("fieldstore: %v", err)
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("fieldstore: creating store directory: %v", err)
	}
	return fileblob.OpenBucket(dir, nil)
}

// gsBucket opens a Google Cloud Storage bucket using the application
// default credentials.
func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("fieldstore: finding Google Cloud credentials: %v", err)
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, fmt.Errorf("fieldstore: creating Google Cloud client: %v", err)
	}
	return gcsblob.OpenBucket(ctx, client, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, fmt.Errorf("fieldstore: creating AWS session: %v", err)
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}
