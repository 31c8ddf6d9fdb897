/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bolt is a Storage backed by a bbolt file.
//
// Each device is one key (its system id) in the "devices" bucket.
// Values are JSON.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Comcast/pcom/discovery"

	bolt "go.etcd.io/bbolt"
)

var (
	devicesBucket = []byte("devices")

	NotOpen = errors.New("not open")
)

type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(devicesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return NotOpen
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB Storage."+format, args...)
	}
}

func (s *Storage) PutDevice(ctx context.Context, d *discovery.Device) error {
	if s.db == nil {
		return NotOpen
	}
	js, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.logf("PutDevice %s %s", d.SystemId, js)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(devicesBucket).Put([]byte(d.SystemId), js)
	})
}

func (s *Storage) RemDevice(ctx context.Context, systemId string) error {
	if s.db == nil {
		return NotOpen
	}
	s.logf("RemDevice %s", systemId)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(devicesBucket).Delete([]byte(systemId))
	})
}

// GetDevices returns every stored device ordered by system id.
func (s *Storage) GetDevices(ctx context.Context) ([]*discovery.Device, error) {
	if s.db == nil {
		return nil, NotOpen
	}
	ds := make([]*discovery.Device, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(devicesBucket).Cursor()
		for id, bs := c.First(); id != nil; id, bs = c.Next() {
			var d discovery.Device
			if err := json.Unmarshal(bs, &d); err != nil {
				return err
			}
			d.SystemId = string(id)
			ds = append(ds, &d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logf("GetDevices found %d devices", len(ds))

	return ds, nil
}
