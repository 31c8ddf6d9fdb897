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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// ops reads one JSON Op per line and calls f with each.  Blank lines
// and lines starting with '#' or '//' are skipped.  A line that isn't
// an Op gets a nil Op and the parse error.
func ops(ctx context.Context, in io.Reader, f func(*Op, error) error) error {
	r := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF
		line = bytes.TrimSpace(line)
		if 0 < len(line) && !bytes.HasPrefix(line, []byte("#")) && !bytes.HasPrefix(line, []byte("//")) {
			var op Op
			if err = json.Unmarshal(line, &op); err != nil {
				err = f(nil, fmt.Errorf("can't parse %s: %w", line, err))
			} else {
				err = f(&op, nil)
			}
			if err != nil {
				return err
			}
		}
		if eof {
			return nil
		}
	}
}

// Boot performs the Ops in the input and stops at the first error.
func (s *Service) Boot(ctx context.Context, in io.Reader) error {
	n := 0
	err := ops(ctx, in, func(op *Op, err error) error {
		if err != nil {
			return err
		}
		n++
		return op.Do(ctx, s)
	})
	log.Printf("Service.Boot did %d ops", n)
	return err
}

// Listener performs the Ops in the input and writes each Op, with its
// results, to the output.
func (s *Service) Listener(ctx context.Context, in io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	return ops(ctx, in, func(op *Op, err error) error {
		if err != nil {
			op = &Op{}
			op.Error, op.Err = erred(err)
		} else {
			// The error is in the Op.
			op.Do(ctx, s)
		}
		return enc.Encode(op)
	})
}
