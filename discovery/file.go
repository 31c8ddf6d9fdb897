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

package discovery

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/Comcast/pcom/device"

	"github.com/jsccast/yaml"
)

// Device describes one device: the capacities of its providers and
// the Offers they make.  Devices come from catalog files and from
// announcements.
type Device struct {
	SystemId  string             `json:"systemId" yaml:"systemId"`
	Providers map[string][]int64 `json:"providers,omitempty" yaml:"providers,omitempty"`
	Offers    []*Offer           `json:"offers,omitempty" yaml:"offers,omitempty"`
}

// File is the catalog file format.
type File struct {
	Devices []*Device `json:"devices" yaml:"devices"`
}

// ParseFile parses YAML (or JSON) catalog data.
//
// Contracts only know how to read JSON, so the YAML is parsed
// generically and then reencoded.  jsccast/yaml gives
// map[string]interface{}, which encoding/json can handle.
func ParseFile(bs []byte) (*File, error) {
	var x interface{}
	if err := yaml.Unmarshal(bs, &x); err != nil {
		return nil, err
	}
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var f File
	if err = json.Unmarshal(js, &f); err != nil {
		return nil, err
	}
	for i, d := range f.Devices {
		if d == nil || d.SystemId == "" {
			return nil, fmt.Errorf("device %d has no systemId", i)
		}
	}
	return &f, nil
}

// ReadFile reads a catalog file.
func ReadFile(filename string) (*File, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	f, err := ParseFile(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return f, nil
}

// Apply puts the Device into the Pool and its Offers into the
// Catalog.  Either can be nil.
//
// Providers the Device no longer lists are removed.  Offers take
// their SystemId from the Device.
func (d *Device) Apply(c *Catalog, pool *device.Pool) error {
	if pool != nil {
		dev := pool.Ensure(d.SystemId)
		for _, pid := range dev.Providers() {
			if _, have := d.Providers[pid]; !have {
				dev.RemoveProvider(pid)
			}
		}
		for pid, capacity := range d.Providers {
			dev.SetProvider(pid, capacity...)
		}
	}
	if c != nil {
		c.RemoveDevice(d.SystemId)
		for _, o := range d.Offers {
			o.SystemId = d.SystemId
			if err := c.Add(o); err != nil {
				return fmt.Errorf("offer %s/%s: %w", d.SystemId, o.ProviderId, err)
			}
		}
	}
	return nil
}

// Forget removes the device from the Catalog and the Pool.
func Forget(systemId string, c *Catalog, pool *device.Pool) {
	if c != nil {
		c.RemoveDevice(systemId)
	}
	if pool != nil {
		pool.Remove(systemId)
	}
}

// Load applies every Device in the File.
func (f *File) Load(c *Catalog, pool *device.Pool) error {
	for _, d := range f.Devices {
		if err := d.Apply(c, pool); err != nil {
			return err
		}
	}
	return nil
}
