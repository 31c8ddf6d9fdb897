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

package tools

import (
	"io"
	"io/ioutil"
	"path/filepath"
	"regexp"
)

var inlineDirective = regexp.MustCompile(`%inline *\("([^"]*)"\)`)

// Inline replaces each '%inline("NAME")' with f(NAME).
//
// Catalog files use this to keep dynamic feature scripts in their own
// files.
func Inline(bs []byte, f func(string) ([]byte, error)) ([]byte, error) {
	acc := make([]byte, 0, len(bs))
	last := 0
	for _, m := range inlineDirective.FindAllSubmatchIndex(bs, -1) {
		acc = append(acc, bs[last:m[0]]...)
		replacement, err := f(string(bs[m[2]:m[3]]))
		if err != nil {
			return nil, err
		}
		acc = append(acc, replacement...)
		last = m[1]
	}
	return append(acc, bs[last:]...), nil
}

func fromDir(dir string) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		return ioutil.ReadFile(filepath.Join(dir, name))
	}
}

// ReadFileWithInlines is ioutil.ReadFile plus Inline, with names
// relative to the file's directory.
func ReadFileWithInlines(filename string) ([]byte, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Inline(bs, fromDir(filepath.Dir(filename)))
}

// ReadAllWithInlines is ioutil.ReadAll plus Inline, with names
// relative to the given directory.
func ReadAllWithInlines(in io.Reader, dir string) ([]byte, error) {
	bs, err := ioutil.ReadAll(in)
	if err != nil {
		return nil, err
	}
	return Inline(bs, fromDir(dir))
}
