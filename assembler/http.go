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
	"io"
	"log"
	"net/http"
	"runtime/pprof"
	"strings"
)

// Handler serves Ops at /api and a sessions listing at /sessions.
func (s *Service) Handler(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()

	complain := func(w http.ResponseWriter, x interface{}, status int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		js, _ := json.Marshal(fmt.Sprintf("%v", x))
		fmt.Fprintf(w, `{"error":%s}`+"\n", js)
	}

	mux.Handle("/goroutines", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pprof.Lookup("goroutine").WriteTo(w, 1)
	}))

	mux.Handle("/sessions", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Sessions()); err != nil {
			log.Printf("Service.HTTPServer warning on Encode(): %v", err)
		}
	}))

	mux.Handle("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			complain(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		js, err := io.ReadAll(r.Body)
		if err != nil {
			complain(w, err, http.StatusBadRequest)
			return
		}
		if err := r.Body.Close(); err != nil {
			log.Printf("Service.HTTPServer warning on Body.Close(): %v", err)
		}

		var op Op
		if err := json.Unmarshal(js, &op); err != nil {
			complain(w, err, http.StatusBadRequest)
			return
		}
		if err = op.Do(ctx, s); err != nil {
			status := http.StatusInternalServerError
			if _, is := err.(*ProtocolViolation); is || strings.HasPrefix(op.Err, "not implemented") {
				status = http.StatusBadRequest
			}
			complain(w, err, status)
			return
		}
		if js, err = json.Marshal(&op); err != nil {
			complain(w, err, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err = w.Write(js); err != nil {
			log.Printf("Service.HTTPServer warning on Write(): %v", err)
		}
	}))

	return mux
}

// HTTPServer serves the Handler (and the websocket endpoints) until
// ctx is done.
func (s *Service) HTTPServer(ctx context.Context, port string) error {
	log.Printf("Service.HTTPServer starting on %s", port)

	mux := s.Handler(ctx)
	s.WebSockets(ctx, mux, port)

	srv := &http.Server{
		Addr:    port,
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
