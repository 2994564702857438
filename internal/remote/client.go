// Package remote is the client of the upstream product API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"storefront-service/internal/catalog"
)

const maxBodyBytes = 4 * 1024 * 1024

// Response-level keys that belong to every listed product.
var sharedKeys = []string{"media_grouped", "availability", "color_options"}

// Options configures a Client.
type Options struct {
	BaseURL      string
	Doer         Doer
	RateLimit    float64 // requests per second, 0 disables throttling
	Burst        int
	ApplyHeaders func(*http.Request)
	Logger       logrus.FieldLogger
}

// Client fetches raw product records. Identical concurrent requests share one upstream call.
type Client struct {
	doer         Doer
	baseURL      string
	applyHeaders func(*http.Request)
	limiter      *rate.Limiter
	group        singleflight.Group
	log          logrus.FieldLogger
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("remote: BaseURL is empty")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("remote: invalid BaseURL: %w", err)
	}
	if opts.Doer == nil {
		opts.Doer = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	c := &Client{
		doer:         opts.Doer,
		baseURL:      base,
		applyHeaders: opts.ApplyHeaders,
		log:          opts.Logger.WithField("component", "remote"),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))
	}
	return c, nil
}

// FetchProducts lists products matching f.
func (c *Client) FetchProducts(ctx context.Context, f catalog.Filter) ([]catalog.RemoteRecord, error) {
	path := "/api/v1/products?" + productQuery(f).Encode()
	v, err := c.shared(ctx, path, func(ctx context.Context) (any, error) {
		body, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}
		return parseProductList(body)
	})
	if err != nil {
		return nil, fmt.Errorf("FetchProducts: %w", err)
	}
	return v.([]catalog.RemoteRecord), nil
}

// FetchProduct returns one product. An unknown id yields an error wrapping catalog.ErrProductNotFound.
func (c *Client) FetchProduct(ctx context.Context, id string) (catalog.RemoteRecord, error) {
	path := "/api/v1/products/" + url.PathEscape(id)
	v, err := c.shared(ctx, path, func(ctx context.Context) (any, error) {
		body, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}
		return parseProduct(body)
	})
	if err != nil {
		return catalog.RemoteRecord{}, fmt.Errorf("FetchProduct %s: %w", id, err)
	}
	return v.(catalog.RemoteRecord), nil
}

// shared collapses concurrent calls for the same path. The upstream call is detached from
// any single caller's cancellation; each caller still stops waiting when its own ctx ends.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.log.WithField("path", key).Debug("shared upstream response")
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.applyHeaders != nil {
		c.applyHeaders(req)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return b, nil
	case http.StatusNotFound:
		return nil, catalog.ErrProductNotFound
	}
	return nil, ParseAPIError(resp.StatusCode, bytes.TrimSpace(b))
}

func productQuery(f catalog.Filter) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("gender", string(f.Gender))
	set("category_id", f.CategoryID)
	set("catalogue_id", f.CatalogueID)
	set("brand", f.Brand)
	if f.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.Featured {
		q.Set("is_featured", "true")
	}
	if len(f.Tags) > 0 {
		q.Set("tags", strings.Join(f.Tags, ","))
	}
	if f.InStockOnly {
		q.Set("in_stock_only", "true")
	}
	q.Set("page", strconv.Itoa(max(f.Page, 1)))
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	return q
}

func decodeBody(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("bad json body=%s", string(b[:min(len(b), 1024)]))
	}
	return raw, nil
}

// parseProductList finds the product array under products, items, data.products or data.
func parseProductList(b []byte) ([]catalog.RemoteRecord, error) {
	raw, err := decodeBody(b)
	if err != nil {
		return nil, err
	}

	var arr []any
	switch {
	case isArray(raw["products"]):
		arr = raw["products"].([]any)
	case isArray(raw["items"]):
		arr = raw["items"].([]any)
	default:
		switch data := raw["data"].(type) {
		case map[string]any:
			arr, _ = data["products"].([]any)
		case []any:
			arr = data
		}
	}
	if arr == nil {
		if code, ok := raw["code"]; ok {
			msg, _ := raw["message"].(string)
			return nil, fmt.Errorf("api error code=%v message=%s", code, msg)
		}
		return []catalog.RemoteRecord{}, nil
	}

	out := make([]catalog.RemoteRecord, 0, len(arr))
	for _, it := range arr {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		inheritShared(m, raw)
		out = append(out, catalog.RemoteRecord{Raw: m})
	}
	return out, nil
}

// parseProduct accepts the product object itself or one wrapped in product or data.
func parseProduct(b []byte) (catalog.RemoteRecord, error) {
	raw, err := decodeBody(b)
	if err != nil {
		return catalog.RemoteRecord{}, err
	}
	m := raw
	for _, k := range []string{"product", "data"} {
		if inner, ok := raw[k].(map[string]any); ok {
			m = inner
			inheritShared(m, raw)
			break
		}
	}
	return catalog.RemoteRecord{Raw: m}, nil
}

// inheritShared copies response-level media, availability and color options into a
// record that does not carry its own.
func inheritShared(rec, resp map[string]any) {
	for _, k := range sharedKeys {
		if _, has := rec[k]; has {
			continue
		}
		if v, ok := resp[k]; ok {
			rec[k] = v
		}
	}
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}
