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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/Comcast/pcom/assembly"
	"github.com/Comcast/pcom/contract"

	"golang.org/x/net/publicsuffix"
)

// Request is the body of POST /discover.
type Request struct {
	Demand *contract.Contract `json:"demand"`
	Scope  []string           `json:"scope,omitempty"`
}

// Response is what POST /discover returns.
type Response struct {
	Candidates []assembly.Candidate `json:"candidates"`
	Err        string               `json:"err,omitempty"`
}

// Client is a Discoverer that asks a remote Handler.
//
// The Client keeps cookies, so a discovery service behind a session
// cookie works.
type Client struct {
	URL     string
	Timeout time.Duration
	Debug   bool

	http *http.Client
}

// NewClient makes a Client for the service at the given base URL.
func NewClient(url string) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Client{
		URL:     url,
		Timeout: 10 * time.Second,
		http:    &http.Client{Jar: jar},
	}, nil
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.Debug {
		log.Printf("Client "+format, args...)
	}
}

// Discover implements assembly.Discoverer.
func (c *Client) Discover(ctx context.Context, demand *contract.Contract, scope []string) ([]assembly.Candidate, error) {
	js, err := json.Marshal(&Request{Demand: demand, Scope: scope})
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL+"/discover", bytes.NewReader(js))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	c.logf("discover %s", demand.Name())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var r Response
	if err = json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("discovery status %d: %w", resp.StatusCode, err)
	}
	if r.Err != "" {
		return nil, fmt.Errorf("discovery status %d: %s", resp.StatusCode, r.Err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery status %s", resp.Status)
	}
	return r.Candidates, nil
}

// Handler serves POST /discover for the given Discoverer.
func Handler(ds assembly.Discoverer) http.Handler {
	reply := func(w http.ResponseWriter, r *Response, status int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(r); err != nil {
			log.Printf("discovery.Handler warning on Encode(): %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/discover", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			reply(w, &Response{Err: "POST only"}, http.StatusMethodNotAllowed)
			return
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			reply(w, &Response{Err: err.Error()}, http.StatusBadRequest)
			return
		}
		if req.Demand == nil {
			reply(w, &Response{Err: "no demand"}, http.StatusBadRequest)
			return
		}
		cs, err := ds.Discover(r.Context(), req.Demand, req.Scope)
		if err != nil {
			reply(w, &Response{Err: err.Error()}, http.StatusInternalServerError)
			return
		}
		if cs == nil {
			cs = []assembly.Candidate{}
		}
		reply(w, &Response{Candidates: cs}, http.StatusOK)
	})
	return mux
}
