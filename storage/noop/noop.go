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

// Package noop is a Storage that forgets everything.
package noop

import (
	"context"

	"github.com/Comcast/pcom/discovery"
)

type Storage struct {
}

func NewStorage() *Storage {
	return &Storage{}
}

func (s *Storage) Open(ctx context.Context) error {
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return nil
}

func (s *Storage) PutDevice(ctx context.Context, d *discovery.Device) error {
	return nil
}

func (s *Storage) RemDevice(ctx context.Context, systemId string) error {
	return nil
}

func (s *Storage) GetDevices(ctx context.Context) ([]*discovery.Device, error) {
	return nil, nil
}
