// Package postgrest talks to a hosted backend exposing PostgREST under /rest/v1 and GoTrue under /auth/v1.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

const (
	restPath = "/rest/v1/"
	authPath = "/auth/v1/"
)

type Options struct {
	URL           string
	AnonKey       string
	Timeout       time.Duration
	WatchSchedule string        // cron spec of the session watcher; empty disables it
	RefreshLeeway time.Duration // refresh access tokens expiring within this delta
	HTTPClient    *http.Client
	Logger        core.Logger
}

type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  core.Logger
	auth    *auth
	cron    *cron.Cron
}

var _ remote.Service = (*Client)(nil)

// Open returns a Client and starts its session watcher.
func Open(opts Options) (*Client, error) {
	if opts.URL == "" || opts.AnonKey == "" {
		return nil, errors.New("remote url and anon key are required")
	}
	if _, err := url.ParseRequestURI(opts.URL); err != nil {
		return nil, errors.Wrap(err, "parsing remote url")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = core.NopLogger()
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.URL, "/"),
		anonKey: opts.AnonKey,
		http:    httpClient,
		logger:  logger,
	}
	c.auth = &auth{client: c, leeway: opts.RefreshLeeway}

	if opts.WatchSchedule != "" {
		c.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.cron.AddFunc(opts.WatchSchedule, c.auth.watch); err != nil {
			return nil, errors.Wrap(err, "scheduling session watcher")
		}
		c.cron.Start()
	}
	return c, nil
}

func (c *Client) From(name string) remote.Table {
	return &table{client: c, name: name}
}

func (c *Client) Auth() remote.Auth {
	return c.auth
}

// Close stops the session watcher. The current session stays persisted.
func (c *Client) Close() error {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	return nil
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    interface{}
	token   string // bearer; the anon key when empty
	headers map[string]string
}

// do sends req and decodes the JSON response into out (when not nil).
// Non-2xx answers are returned as *core.RemoteError with the provider's message.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	token := req.token
	if token == "" {
		token = c.anonKey
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	res, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return remoteError(res.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

// errorBody covers the error shapes of PostgREST and GoTrue.
type errorBody struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Message          string      `json:"message"`
	Msg              string      `json:"msg"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

func remoteError(status int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)

	rErr := &core.RemoteError{Status: status}
	switch {
	case body.ErrorCode != "":
		rErr.Code = body.ErrorCode
	case body.Error != "":
		rErr.Code = body.Error
	case body.Code != nil:
		rErr.Code = fmt.Sprint(body.Code)
	}
	for _, msg := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
		if msg != "" {
			rErr.Message = msg
			break
		}
	}
	if rErr.Message == "" {
		rErr.Message = strings.TrimSpace(string(data))
	}
	if rErr.Message == "" {
		rErr.Message = http.StatusText(status)
	}
	return rErr
}
