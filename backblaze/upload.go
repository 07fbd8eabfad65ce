// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backblaze copies export files to a Backblaze B2 bucket
package backblaze

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kothar/go-backblaze"
	"github.com/rs/zerolog/log"
)

var ErrBucketNotFound = errors.New("bucket not found")

// Bucket is a B2 bucket reached with an application key
type Bucket struct {
	KeyID          string
	ApplicationKey string
	Name           string
}

// Upload stores the local file fn as <dirname>/<base name of fn>
func (myBucket *Bucket) Upload(fn, dirname string) error {
	b2, err := backblaze.NewB2(backblaze.Credentials{
		KeyID:          myBucket.KeyID,
		ApplicationKey: myBucket.ApplicationKey,
	})
	if err != nil {
		log.Error().Err(err).Str("BucketName", myBucket.Name).Msg("authorize backblaze failed")
		return err
	}

	bucket, err := b2.Bucket(myBucket.Name)
	if err != nil {
		log.Error().Err(err).Str("BucketName", myBucket.Name).Msg("lookup bucket failed")
		return err
	}
	if bucket == nil {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, myBucket.Name)
	}

	reader, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer reader.Close()

	outName := fmt.Sprintf("%s/%s", dirname, filepath.Base(fn))
	metadata := map[string]string{"source": "pvportfolio"}

	file, err := bucket.UploadFile(outName, metadata, reader)
	if err != nil {
		log.Error().Err(err).Str("FileName", outName).Str("BucketName", myBucket.Name).Msg("save file to backblaze failed")
		return err
	}

	log.Info().Str("FileName", file.Name).Int64("Size", file.ContentLength).Str("ID", file.ID).Msg("uploaded file to backblaze")
	return nil
}
