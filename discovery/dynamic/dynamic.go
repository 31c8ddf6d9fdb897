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

// Package dynamic computes the values of dynamic feature-provisions
// with ECMAScript.
//
// A provider describes a dynamic feature with a little script.  The
// script's return value is the feature's current value.  Scripts see
// a single object at _ with these properties:
//
//	dimension, feature: what's being computed.
//	now(): the current time in milliseconds since the epoch.
//	cronNext(expr): the next time (RFC3339) the cron expression fires.
//	log(x): log x as JSON.
//
// See https://github.com/dop251/goja.
package dynamic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// NoScript is returned by Resolve for a feature without a
	// script.
	NoScript = errors.New("no script")
)

// Interpreter runs feature scripts.  Compiled programs are cached by
// source.
type Interpreter struct {
	// Timeout, if not zero, limits each execution.
	Timeout time.Duration

	sync.Mutex
	programs map[string]*goja.Program
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		programs: make(map[string]*goja.Program, 32),
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile compiles (or finds the cached compilation of) the source.
func (i *Interpreter) Compile(src string) (*goja.Program, error) {
	i.Lock()
	defer i.Unlock()

	if p, have := i.programs[src]; have {
		return p, nil
	}
	p, err := goja.Compile("", wrapSrc(src), true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + src)
	}
	i.programs[src] = p
	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// Exec runs the script for the given feature and returns its
// (exported) value.
func (i *Interpreter) Exec(ctx context.Context, dimension, feature, src string) (interface{}, error) {
	p, err := i.Compile(src)
	if err != nil {
		return nil, err
	}

	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	o := goja.New()

	env := map[string]interface{}{
		"dimension": dimension,
		"feature":   feature,
	}

	env["now"] = func() interface{} {
		return time.Now().UnixNano() / int64(time.Millisecond)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		cronExpr, is := x.(string)
		if !is {
			protest(o, "not a string")
		}

		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["log"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		js, err := json.Marshal(&x)
		if err != nil {
			log.Println("dynamic.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Printf("dynamic.log %s/%s %s", dimension, feature, js)
		}
		return x
	}

	o.Set("_", env)

	// Make sure the following goroutine is terminated as soon as
	// possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// After a normal return, cancel() gets here too, but
		// then nobody is listening for the interrupt.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.Export(), nil
}

// Scripts is a provider's set of feature scripts keyed by
// "dimension/feature".  It resolves dynamic feature values for
// provision views.
type Scripts struct {
	Interpreter *Interpreter
	Sources     map[string]string
}

// Key makes a Sources key.
func Key(dimension, feature string) string {
	return dimension + "/" + feature
}

// Resolve runs the script for the feature.
func (s *Scripts) Resolve(ctx context.Context, dimension, feature string) (interface{}, error) {
	src, have := s.Sources[Key(dimension, feature)]
	if !have {
		return nil, NoScript
	}
	i := s.Interpreter
	if i == nil {
		i = NewInterpreter()
		s.Interpreter = i
	}
	return i.Exec(ctx, dimension, feature, src)
}

// Check compiles every script.
func (s *Scripts) Check() error {
	i := s.Interpreter
	if i == nil {
		i = NewInterpreter()
		s.Interpreter = i
	}
	for k, src := range s.Sources {
		if _, err := i.Compile(src); err != nil {
			return fmt.Errorf("script %s: %w", k, err)
		}
	}
	return nil
}
