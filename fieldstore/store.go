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

// Package fieldstore saves and loads the numeric arrays shared between
// post-processing stages. Each array is stored as a netCDF file in a local
// directory or a cloud storage bucket.
package fieldstore

import (
	"context"
	"fmt"
	"path"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ruq"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Store is a ruq.FieldStore backed by blob storage. Each artifact is
// written with a single blob write, so a failed Save never leaves a
// truncated file behind.
type Store struct {
	bucket *blob.Bucket
	prefix string

	// Provenance identifies the study configuration that the store is
	// being used for. It is recorded with every saved artifact, and
	// loading an artifact saved with a different provenance logs a
	// warning.
	Provenance string

	Log logrus.FieldLogger
}

var _ ruq.FieldStore = (*Store)(nil)

// Open opens the store at location, which may be a local directory or a
// bucket URL as accepted by OpenBucket.
func Open(ctx context.Context, location string) (*Store, error) {
	bucket, prefix, err := OpenBucket(ctx, location)
	if err != nil {
		return nil, err
	}
	return &Store{bucket: bucket, prefix: prefix, Log: logrus.StandardLogger()}, nil
}

// Close releases the resources held by the store.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// blobKey returns the blob key of artifact key.
func (s *Store) blobKey(key string) string {
	return path.Join(s.prefix, key+".nc")
}

// Save saves data under key.
func (s *Store) Save(ctx context.Context, key string, data *sparse.DenseArray) error {
	b, err := encode(data, map[string]string{
		attrKey:        key,
		attrProvenance: s.Provenance,
		attrVersion:    ruq.Version,
	})
	if err != nil {
		return fmt.Errorf("fieldstore: saving %s: %v", key, err)
	}
	if err := s.bucket.WriteAll(ctx, s.blobKey(key), b, nil); err != nil {
		return fmt.Errorf("fieldstore: writing %s: %v", key, err)
	}
	s.Log.WithFields(logrus.Fields{
		"key":   key,
		"shape": data.Shape,
	}).Debug("saved artifact")
	return nil
}

// Load loads the array saved under key. It returns a
// *ruq.MissingArtifactError if there is no such array.
func (s *Store) Load(ctx context.Context, key string) (*sparse.DenseArray, error) {
	b, err := s.bucket.ReadAll(ctx, s.blobKey(key))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, &ruq.MissingArtifactError{Key: key}
	} else if err != nil {
		return nil, fmt.Errorf("fieldstore: reading %s: %v", key, err)
	}
	data, attrs, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("fieldstore: loading %s: %v", key, err)
	}
	if p := attrs[attrProvenance]; s.Provenance != "" && p != s.Provenance {
		s.Log.WithFields(logrus.Fields{
			"key":                  key,
			"artifact provenance":  p,
			"expected provenance":  s.Provenance,
			"artifact ruq version": attrs[attrVersion],
		}).Warn("artifact was created with a different study configuration")
	}
	return data, nil
}

// Exists returns whether an array has been saved under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, s.blobKey(key))
}
