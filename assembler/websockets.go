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
	"html/template"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSockets adds a websocket endpoint at /ws/api to the mux.
//
// Clients send Ops.  Every client also gets the firehose: all ops
// (from any client or from /api) and all item-removal events.  That
// doesn't scale, but it's great for watching what a deployment does.
func (s *Service) WebSockets(ctx context.Context, mux *http.ServeMux, port string) {
	s.firehose = make(chan interface{}, 1024)

	var upgrader = websocket.Upgrader{} // use default options

	conns := sync.Map{}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case x := <-s.firehose:
				conns.Range(func(k, v interface{}) bool {
					c := v.(chan interface{})
					select {
					case c <- x:
					default:
						log.Printf("%v firehose blocked", k)
					}
					return true
				})
			}
		}
	}()

	api := func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error", err)
			return
		}
		defer c.Close()

		// Writes come from two goroutines.
		var wmu sync.Mutex
		write := func(bs []byte) error {
			wmu.Lock()
			defer wmu.Unlock()
			return c.WriteMessage(websocket.TextMessage, bs)
		}

		ctl := make(chan bool)
		defer close(ctl)

		firehose := make(chan interface{}, 32)

		id := c.RemoteAddr().String()
		conns.Store(id, firehose)
		defer conns.Delete(id)

		go func() {
			for {
				select {
				case <-ctl:
					return
				case <-ctx.Done():
					return
				case x := <-firehose:
					js, err := json.Marshal(&x)
					if err != nil {
						log.Printf("s.firehose Marshal error %v on %#v", err, x)
						continue
					}
					if err = write(js); err != nil {
						log.Println("s.firehose write:", err)
					}
				}
			}
		}()

		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				s.logf("WebSockets read error %v", err)
				break
			}

			var op Op
			if err := json.Unmarshal(message, &op); err != nil {
				msg := fmt.Sprintf(`{"err":%q}`, "can't parse: "+err.Error())
				if err = write([]byte(msg)); err != nil {
					log.Println("write (err)", err)
				}
				continue
			}
			// The result goes out on the firehose.
			if err = op.Do(ctx, s); err != nil {
				s.logf("WebSockets op error %v", err)
			}
		}
	}

	var uiTemplate = template.Must(template.New("").Parse(`
<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<script>
window.addEventListener("load", function(evt) {
    var output = document.getElementById("output");
    var input = document.getElementById("input");
    var ws;

    var print = function(message) {
        var d = document.createElement("div");
        d.textContent = message;
        output.insertBefore(d, output.firstChild);
    };

    document.getElementById("open").onclick = function(evt) {
        if (ws) {
            return false;
        }
        ws = new WebSocket("ws://{{.}}/ws/api");
        ws.onopen = function(evt) { print("OPEN"); }
        ws.onclose = function(evt) { print("CLOSE"); ws = null; }
        ws.onmessage = function(evt) { print("RESPONSE: " + evt.data); }
        ws.onerror = function(evt) { print("ERROR: " + evt.data); }
        return false;
    };

    document.getElementById("send").onclick = function(evt) {
        if (!ws) {
            return false;
        }
        print("SEND: " + input.value);
        ws.send(input.value);
        return false;
    };

    document.getElementById("close").onclick = function(evt) {
        if (ws) {
            ws.close();
        }
        return false;
    };
});
</script>
<style>
body { margin: 2em }
</style>
</head>
<body>
<form>
<button id="open">Open connection</button>
<button id="close">Close connection</button>
<br><input id="input" size="100" type="text" value='{"devices":{}}'>
<br><button id="send">Send</button>
<hr>
<div id="output"></div>
</body>
</html>
`))

	ui := func(w http.ResponseWriter, r *http.Request) {
		uiTemplate.Execute(w, "localhost"+port)
	}

	mux.HandleFunc("/ws/api", api)
	mux.HandleFunc("/ws/ui", ui)

	log.Printf("Service.HTTPServer (%s) has Websockets", port)
}
