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

package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Comcast/pcom/assembly"
	"github.com/Comcast/pcom/device"
)

// Op is a Service operation.
//
// Only one of the operation fields should have a value.  Results are
// written into that field.
type Op struct {
	Prepare   *PrepareOp   `json:"prepare,omitempty" yaml:",omitempty"`
	Setup     *SetupOp     `json:"setup,omitempty" yaml:",omitempty"`
	Configure *ConfigureOp `json:"configure,omitempty" yaml:",omitempty"`
	Remove    *RemoveOp    `json:"remove,omitempty" yaml:",omitempty"`
	Retrieve  *RetrieveOp  `json:"retrieve,omitempty" yaml:",omitempty"`
	Renew     *RenewOp     `json:"renew,omitempty" yaml:",omitempty"`
	Devices   *DevicesOp   `json:"devices,omitempty" yaml:",omitempty"`
	Items     *ItemsOp     `json:"items,omitempty" yaml:",omitempty"`

	// Error will hold an error (if any) that results from
	// processing this operation.
	Error error `json:"-" yaml:"-"`

	// Err will hold a string representation of an error (if any)
	// that results from processing this operation.
	Err string `json:"err,omitempty" yaml:",omitempty"`
}

// erred is a utility function to return values to assign to operation
// Error and Err fields.
func erred(err error) (error, string) {
	if err == nil {
		return nil, ""
	}
	return err, err.Error()
}

func (o *Op) String() string {
	js, err := json.Marshal(o)
	if err != nil {
		return fmt.Sprintf("%#v", o)
	}
	return string(js)
}

// Do performs the operation.
//
// A ProtocolViolation from the Service becomes the Op's error so one
// bad request doesn't take the whole daemon down.
func (o *Op) Do(ctx context.Context, s *Service) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pv, is := r.(*ProtocolViolation)
			if !is {
				panic(r)
			}
			log.Printf("Op %s protocol violation: %v", o.kind(), pv)
			err = pv
			o.Error, o.Err = erred(pv)
		}
		s.emit("op", o)
	}()

	switch {
	case o.Prepare != nil:
		err = o.Prepare.Do(ctx, s)
	case o.Setup != nil:
		err = o.Setup.Do(ctx, s)
	case o.Configure != nil:
		err = o.Configure.Do(ctx, s)
	case o.Remove != nil:
		err = s.Remove(ctx, o.Remove.App)
	case o.Retrieve != nil:
		err = o.Retrieve.Do(ctx, s)
	case o.Renew != nil:
		err = s.Renew(ctx, o.Renew.App)
	case o.Devices != nil:
		o.Devices.Ledger = s.Devices.Snapshot()
	case o.Items != nil:
		o.Items.Items = s.Items(o.Items.App)
	default:
		err = fmt.Errorf("not implemented: %s", o)
	}

	if err != nil && o.Error == nil {
		o.Error, o.Err = erred(err)
	}
	return o.Error
}

// kind names the operation for logging.
func (o *Op) kind() string {
	switch {
	case o.Prepare != nil:
		return "prepare"
	case o.Setup != nil:
		return "setup"
	case o.Configure != nil:
		return "configure"
	case o.Remove != nil:
		return "remove"
	case o.Retrieve != nil:
		return "retrieve"
	case o.Renew != nil:
		return "renew"
	case o.Devices != nil:
		return "devices"
	case o.Items != nil:
		return "items"
	}
	return "unknown"
}

type PrepareOp struct {
	App   string `json:"app"`
	Lease string `json:"lease,omitempty" yaml:",omitempty"`
}

func (o *PrepareOp) Do(ctx context.Context, s *Service) error {
	h, err := s.Prepare(ctx, o.App)
	o.Lease = string(h)
	return err
}

type SetupOp struct {
	App     string           `json:"app"`
	Pointer assembly.Pointer `json:"pointer"`
	State   *assembly.State  `json:"state"`

	Children []Addressed `json:"children,omitempty" yaml:",omitempty"`
}

func (o *SetupOp) Do(ctx context.Context, s *Service) error {
	var err error
	o.Children, err = s.Setup(ctx, o.App, o.Pointer, o.State)
	return err
}

type ConfigureOp struct {
	App      string             `json:"app"`
	Assembly *assembly.Assembly `json:"assembly,omitempty" yaml:",omitempty"`
}

func (o *ConfigureOp) Do(ctx context.Context, s *Service) error {
	var err error
	o.Assembly, err = s.Configure(ctx, o.App)
	return err
}

type RemoveOp struct {
	App string `json:"app"`
}

type RetrieveOp struct {
	App     string           `json:"app"`
	Pointer assembly.Pointer `json:"pointer"`

	Assembly *assembly.Assembly `json:"assembly,omitempty" yaml:",omitempty"`
}

func (o *RetrieveOp) Do(ctx context.Context, s *Service) error {
	o.Assembly = s.Retrieve(ctx, o.App, o.Pointer)
	return nil
}

type RenewOp struct {
	App string `json:"app"`
}

type DevicesOp struct {
	Ledger device.Ledger `json:"ledger,omitempty" yaml:",omitempty"`
}

type ItemsOp struct {
	App   string              `json:"app"`
	Items []assembly.ItemInfo `json:"items,omitempty" yaml:",omitempty"`
}
