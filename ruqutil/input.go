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

package ruqutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spatialmodel/ruq/fieldstore"
	"gocloud.dev/blob"
)

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// openInput opens the input file at path, which may be a local file,
// an http(s) URL, or a blob storage URL.
func openInput(ctx context.Context, path string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		return openHTTP(ctx, path)
	case strings.HasPrefix(path, "file://"):
		u, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("ruq: parsing input path: %v", err)
		}
		return os.Open(u.Host + u.Path)
	case IsBlob(path):
		return openBlob(ctx, path)
	}
	return os.Open(path)
}

func openHTTP(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ruq: downloading %s: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ruq: downloading %s: %s", path, resp.Status)
	}
	return resp.Body, nil
}

// blobReader closes its bucket along with the reader.
type blobReader struct {
	*blob.Reader
	bucket *blob.Bucket
}

func (r blobReader) Close() error {
	err := r.Reader.Close()
	if err2 := r.bucket.Close(); err == nil {
		err = err2
	}
	return err
}

// openBlob opens the blob at path, which is in the format
// 'provider://bucket/key'.
func openBlob(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := fieldstore.OpenBucket(ctx, path)
	if err != nil {
		return nil, err
	}
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("ruq: opening %s: %v", path, err)
	}
	return blobReader{Reader: r, bucket: bucket}, nil
}
