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

// Package tools renders assemblies and checks catalogs.
package tools

// dot -Tpng a.dot > a.png

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/pcom/assembly"
	"github.com/Comcast/pcom/contract"

	"gopkg.in/yaml.v2"
)

// DotOpts controls Dot.
type DotOpts struct {
	// Templates adds each node's template (as YAML) to its label.
	Templates bool

	// Highlight is a pointer to draw in red.  Usually the position
	// that a container couldn't instantiate.
	Highlight string
}

var dotFill = map[string]string{
	assembly.InstanceElement.String(): "#99ddc8",
	assembly.ResourceElement.String(): "#52aa5e",
}

// templateYAML renders a template as YAML.  Contracts only know JSON,
// so the JSON is decoded generically first.
func templateYAML(c *contract.Contract) string {
	if c == nil {
		return ""
	}
	js, err := json.Marshal(c)
	if err != nil {
		return err.Error()
	}
	var x interface{}
	if err = json.Unmarshal(js, &x); err != nil {
		return err.Error()
	}
	bs, err := yaml.Marshal(x)
	if err != nil {
		return err.Error()
	}
	return string(bs)
}

func htmlEscape(s string) string {
	s = strings.Replace(s, "&", "&amp;", -1)
	s = strings.Replace(s, "<", "&lt;", -1)
	s = strings.Replace(s, ">", "&gt;", -1)
	return s
}

// Dot writes a Graphviz dot graph for the assembly.
func Dot(a *assembly.Assembly, w io.Writer, opts *DotOpts) error {
	if opts == nil {
		opts = &DotOpts{}
	}

	var err error
	printf := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("digraph G {\n")
	printf(`  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	ids := make(map[string]string)
	n := 0
	a.Walk(func(x *assembly.Assembly) bool {
		p := x.Pointer.String()
		id := fmt.Sprintf("n%d", n)
		n++
		ids[p] = id

		label := htmlEscape(p) + `<BR/><FONT POINT-SIZE="8">` +
			htmlEscape(x.SystemId+"/"+x.ProviderId) + `</FONT>`
		if opts.Templates {
			src := htmlEscape(templateYAML(x.Template))
			label += `<FONT POINT-SIZE="6"><BR/>` +
				strings.Replace(src, "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}

		color, fill, style := "black", dotFill[x.Kind], "filled"
		if fill == "" {
			fill = "#2d93ad"
		}
		if p == opts.Highlight {
			color, fill = "red", "#f98b8b"
		}
		if x.Pointer.IsRoot() {
			style += ",bold"
		}
		shape := "record"
		if x.Kind == assembly.ResourceElement.String() {
			shape = "note"
		}
		printf("  %s [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			id, shape, style, color, fill, label)

		if parent, ok := x.Pointer.Parent(); ok {
			step := x.Pointer.Last()
			sign := "-"
			if step.Instance {
				sign = "+"
			}
			printf("  %s -> %s [ label = <%s> ]\n", ids[parent.String()], id, htmlEscape(sign+step.Name))
		}
		return err == nil
	})

	printf("}\n")
	return err
}

// PNG writes basename.dot and then runs Graphviz to make
// basename.png.
func PNG(a *assembly.Assembly, basename string, opts *DotOpts) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	f, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err = Dot(a, f, opts); err != nil {
		f.Close()
		return pngname, err
	}
	if err = f.Close(); err != nil {
		return pngname, err
	}
	out, err := os.Create(pngname)
	if err != nil {
		return pngname, err
	}
	defer out.Close()
	cmd := exec.Command("dot", "-Tpng", dotname)
	cmd.Stdout = out
	return pngname, cmd.Run()
}
