// Package client talks to the simulator backend's JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/energylife/energylife/pkg/common"
	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Operations, used to pick the generic failure message.
const (
	OpGetState    = "getState"
	OpSaveState   = "saveState"
	OpSimulateDay = "simulateDay"
	OpBuy         = "buy"
	OpShop        = "shop"
)

const maxBodySize = 8 << 20

// RequestError is returned by every Client method when the backend couldn't
// be reached or answered with a non-2xx status.
type RequestError struct {
	Op string
	// Status is 0 when the request never got a response.
	Status int
	// Message is the backend's reason if it sent one, otherwise a generic
	// message in the display language.
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Client is a thin wrapper around the backend endpoints. One method call is
// exactly one HTTP request, nothing is retried.
type Client struct {
	client  *http.Client
	baseURL string
	cookies []*http.Cookie
	lang    i18n.Lang
}

// New returns a Client for the backend at baseURL. A zero timeout means
// requests wait as long as the backend takes.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  common.HTTPClient(timeout),
		baseURL: baseURL,
		lang:    i18n.Thai,
	}
}

// Configured returns a Client set up from flags.
func Configured() *Client {
	c := &Client{lang: i18n.Thai}

	defaultURL := os.Getenv("ENERGYLIFE_BACKEND_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:5000"
	}
	baseURL := lflag.String("backend-url", defaultURL, "Base URL of the simulator backend")
	timeout := lflag.Duration("backend-timeout", 0, "Timeout for backend requests. 0 means no timeout.")
	cookies := lflag.String("backend-cookies", "", "Cookies sent with every backend request, in Cookie header format (e.g. session=abc; lang=th)")

	lflag.Do(func() {
		u, err := url.Parse(*baseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			panic(fmt.Sprintf("invalid backend-url: %q", *baseURL))
		}
		c.baseURL = *baseURL
		c.client = common.HTTPClient(*timeout)
		if *cookies != "" {
			parsed, err := http.ParseCookie(*cookies)
			if err != nil {
				panic(fmt.Sprintf("invalid backend-cookies: %v", err))
			}
			c.cookies = parsed
		}
	})

	return c
}

// WithJar returns a copy of the client that keeps the cookies the backend
// sets in jar. Each browser session gets its own jar so it also gets its own
// backend session.
func (c *Client) WithJar(jar http.CookieJar) *Client {
	cp := *c
	hc := *c.client
	hc.Jar = jar
	cp.client = &hc
	return &cp
}

// SetLang sets the default language of generic error messages.
func (c *Client) SetLang(lang i18n.Lang) {
	c.lang = lang
}

type cookiesKey struct{}
type langKey struct{}

// WithCookies returns a context whose backend requests carry the given
// cookies, typically the browser's backend session.
func WithCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	return context.WithValue(ctx, cookiesKey{}, cookies)
}

// WithLang overrides the language of generic error messages for requests made
// with the returned context.
func WithLang(ctx context.Context, lang i18n.Lang) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

func (c *Client) langFor(ctx context.Context) i18n.Lang {
	if l, ok := ctx.Value(langKey{}).(i18n.Lang); ok && l != "" {
		return l
	}
	return c.lang
}

func (c *Client) genericMessage(ctx context.Context, op string) string {
	msgs := i18n.For(c.langFor(ctx))
	switch op {
	case OpGetState:
		return msgs.LoadFailed
	case OpSaveState:
		return msgs.SaveFailed
	case OpSimulateDay:
		return msgs.SimulateFailed
	case OpBuy:
		return msgs.BuyFailed
	case OpShop:
		return msgs.ShopFailed
	default:
		return op + " failed"
	}
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, data any) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if cks, ok := ctx.Value(cookiesKey{}).([]*http.Cookie); ok {
		for _, ck := range cks {
			req.AddCookie(ck)
		}
	}
	return req, nil
}

// do sends the request and returns the raw body. Non-2xx statuses and
// transport failures become a *RequestError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, data any) ([]byte, error) {
	req, err := c.newRequest(ctx, method, endpoint, data)
	if err != nil {
		return nil, &RequestError{Op: op, Message: c.genericMessage(ctx, op), Err: err}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "backend request failed", slog.String("op", op), slog.Any("error", err))
		return nil, &RequestError{Op: op, Message: c.genericMessage(ctx, op), Err: err}
	}
	defer resp.Body.Close()

	// a failed read leaves whatever we got, which is then handled like any
	// other malformed body
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		log.Ctx(ctx).DebugContext(ctx, "failed to read backend body", slog.String("op", op), slog.Any("error", err))
	}
	log.Ctx(ctx).DebugContext(
		ctx,
		"backend request",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorField(body)
		if msg == "" {
			msg = c.genericMessage(ctx, op)
		}
		log.Ctx(ctx).WarnContext(ctx, "backend returned error", slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("message", msg))
		return nil, &RequestError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: msg,
			Err:     fmt.Errorf("%s %s: status %d", method, endpoint, resp.StatusCode),
		}
	}
	return body, nil
}

// errorField returns the "error" string of a JSON object body, or "" if the
// body isn't one.
func errorField(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	if s, ok := obj["error"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// decode unmarshals body into a fresh T. An empty or malformed body decodes
// as {}.
func decode[T any](ctx context.Context, body []byte) T {
	var v T
	if len(bytes.TrimSpace(body)) == 0 {
		return v
	}
	if err := json.Unmarshal(body, &v); err != nil {
		log.Ctx(ctx).DebugContext(ctx, "ignoring malformed backend body", slog.Any("error", err))
		var zero T
		return zero
	}
	return v
}

// GetState fetches the player's persisted profile and state.
func (c *Client) GetState(ctx context.Context) (types.Snapshot, error) {
	body, err := c.do(ctx, OpGetState, http.MethodGet, "/api/state", nil)
	if err != nil {
		return types.Snapshot{}, err
	}
	return decode[types.Snapshot](ctx, body), nil
}

// SaveState persists the payload. The backend only confirms, callers refetch
// with GetState to see the canonical snapshot.
func (c *Client) SaveState(ctx context.Context, p types.Payload) error {
	_, err := c.do(ctx, OpSaveState, http.MethodPost, "/api/state", p)
	return err
}

// SimulateDay asks the backend to simulate one day using the saved state.
func (c *Client) SimulateDay(ctx context.Context) (types.SimulateDayResponse, error) {
	body, err := c.do(ctx, OpSimulateDay, http.MethodPost, "/api/simulate_day", struct{}{})
	if err != nil {
		return types.SimulateDayResponse{}, err
	}
	return decode[types.SimulateDayResponse](ctx, body), nil
}

// Buy purchases the shop item with the given key.
func (c *Client) Buy(ctx context.Context, itemKey string) (types.BuyResponse, error) {
	body, err := c.do(ctx, OpBuy, http.MethodPost, "/api/buy", struct {
		ItemKey string `json:"item_key"`
	}{ItemKey: itemKey})
	if err != nil {
		return types.BuyResponse{}, err
	}
	return decode[types.BuyResponse](ctx, body), nil
}

// Shop lists the items that can be bought.
func (c *Client) Shop(ctx context.Context) ([]types.ShopItem, error) {
	body, err := c.do(ctx, OpShop, http.MethodGet, "/api/shop", nil)
	if err != nil {
		return nil, err
	}
	return decode[types.ShopResponse](ctx, body).Items, nil
}
