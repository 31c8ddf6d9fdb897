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

// Package storage persists what devices have said about themselves:
// provider capacities and offers.  Reservations and sessions are never
// stored.
package storage

import (
	"context"

	"github.com/Comcast/pcom/device"
	"github.com/Comcast/pcom/discovery"
)

// Storage is a persistence interface for device descriptions.
type Storage interface {
	Open(ctx context.Context) error

	Close(ctx context.Context) error

	PutDevice(ctx context.Context, d *discovery.Device) error

	RemDevice(ctx context.Context, systemId string) error

	GetDevices(ctx context.Context) ([]*discovery.Device, error)
}

// Restore applies every stored device to the Catalog and the Pool.
func Restore(ctx context.Context, s Storage, c *discovery.Catalog, pool *device.Pool) (int, error) {
	ds, err := s.GetDevices(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range ds {
		if err = d.Apply(c, pool); err != nil {
			return 0, err
		}
	}
	return len(ds), nil
}
