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
	"fmt"
	"io"
	"sort"

	"github.com/Comcast/pcom/discovery"

	md "github.com/russross/blackfriday/v2"
)

// RenderCatalogHTML writes an HTML fragment describing every Offer in
// the catalog.  Offer docs are Markdown.
func RenderCatalogHTML(f *discovery.File, out io.Writer) error {
	var err error
	p := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(out, format+"\n", args...)
		}
	}

	p(`<div class="devices">`)
	for _, d := range f.Devices {
		p(`<div class="device" id="%s">`, htmlEscape(d.SystemId))
		p(`<h2>%s</h2>`, htmlEscape(d.SystemId))

		if len(d.Providers) > 0 {
			pids := make([]string, 0, len(d.Providers))
			for pid := range d.Providers {
				pids = append(pids, pid)
			}
			sort.Strings(pids)
			p(`<table class="providers">`)
			for _, pid := range pids {
				p(`<tr><td class="providerId">%s</td><td><code>%v</code></td></tr>`, htmlEscape(pid), d.Providers[pid])
			}
			p(`</table>`)
		}

		for _, o := range d.Offers {
			p(`<div class="offer">`)
			p(`<h3>%s</h3>`, htmlEscape(o.ProviderId))
			if o.Doc != "" {
				p(`<div class="offerDoc doc">%s</div>`, md.Run([]byte(o.Doc)))
			}
			if len(o.Rules) > 0 {
				p(`<div class="rules"><table>`)
				for _, r := range o.Rules {
					feature := r.Feature
					if r.Blanket() {
						feature = "*"
					}
					p(`<tr><td>%s</td><td>%s</td><td><code>%v</code></td></tr>`,
						htmlEscape(r.Dimension), htmlEscape(feature), r.Value)
				}
				p(`</table></div>`)
			}
			for _, t := range o.Templates {
				p(`<div class="template"><span class="slot">%s</span><pre>%s</pre></div>`,
					htmlEscape(t.Slot().String()), htmlEscape(templateYAML(t)))
			}
			if len(o.Dynamic) > 0 {
				keys := make([]string, 0, len(o.Dynamic))
				for k := range o.Dynamic {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					p(`<div class="script"><span class="key">%s</span><div class="code"><pre>%s</pre></div></div>`,
						htmlEscape(k), htmlEscape(o.Dynamic[k]))
				}
			}
			p(`</div>`)
		}
		p(`</div>`)
	}
	p(`</div>`)
	return err
}

// RenderCatalogPage writes a complete HTML page for the catalog.
func RenderCatalogPage(f *discovery.File, title string, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/catalog.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, htmlEscape(title))
	for _, css := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", css)
	}
	fmt.Fprintf(out, `  </head>
  <body>
    <h1>%s</h1>
`, htmlEscape(title))

	if err := RenderCatalogHTML(f, out); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, `
  </body>
</html>
`)
	return err
}

// ReadAndRenderCatalogPage reads a catalog file (with inlines) and
// renders it.
func ReadAndRenderCatalogPage(filename string, cssFiles []string, out io.Writer) error {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return err
	}
	f, err := discovery.ParseFile(bs)
	if err != nil {
		return err
	}
	return RenderCatalogPage(f, filename, out, cssFiles)
}
