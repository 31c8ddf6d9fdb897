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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/pcom/assembly"
)

type MermaidOpts struct {
	// ShowTemplates puts each template's JSON in its node.
	ShowTemplates bool `json:"showTemplates"`

	// ResourceFill is the fill color of resource nodes.  Does not
	// apply if ResourceClass is set.
	ResourceFill string `json:"resourceFill,omitempty"`

	// ResourceClass will be the CSS class for resource nodes.
	ResourceClass string `json:"resourceClass,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) flowchart
// for the assembly.
func Mermaid(a *assembly.Assembly, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ResourceFill: "#bcf2db",
		}
	}

	var err error
	printf := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("graph TB\n")

	nids := make(map[string]string)
	num := 0
	a.Walk(func(x *assembly.Assembly) bool {
		num++
		nid := fmt.Sprintf("n%d", num)
		nids[x.Pointer.String()] = nid

		label := x.Pointer.String() + "<br/>" + x.SystemId + "/" + x.ProviderId
		if opts.ShowTemplates && x.Template != nil {
			js, e := json.Marshal(x.Template)
			if e != nil {
				err = e
				return false
			}
			label += "<br/><pre>" + string(js) + "</pre>"
		}
		label = strings.Replace(label, `"`, `'`, -1)

		if x.Kind == assembly.ResourceElement.String() {
			printf("  %s[\"%s\"]\n", nid, label)
			if opts.ResourceClass != "" {
				printf("  class %s %s\n", nid, opts.ResourceClass)
			} else if opts.ResourceFill != "" {
				printf("  style %s fill:%s\n", nid, opts.ResourceFill)
			}
		} else {
			printf("  %s(\"%s\")\n", nid, label)
		}

		if parent, ok := x.Pointer.Parent(); ok {
			printf("  %s -- \"%s\" --> %s\n", nids[parent.String()], x.Pointer.Last().Name, nid)
		}
		return err == nil
	})

	printf("\n")
	return err
}
