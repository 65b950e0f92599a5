// Package quote submits finalized payloads to the quoting service and
// relays the provider's response verbatim. This layer does not interpret
// success or failure beyond logging.
package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/wisecover/quotebot/pkg/session"
)

// Submitter accepts a finalized payload and returns the provider response.
type Submitter interface {
	Submit(ctx context.Context, product session.Product, payload json.RawMessage) json.RawMessage
}

// Provider API paths per product.
var endpoints = map[session.Product]string{
	session.ProductTravel: "/api/v2/quotation/generate",
	session.ProductFamily: "/api/quotation/generate",
}

// Client posts quote requests to the provider API.
type Client struct {
	baseURL string
	http    *http.Client
	stub    bool
}

// New creates a quoting client. With stub enabled, Submit returns canned
// responses instead of calling the provider (local development and tests).
func New(baseURL string, stub bool) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		stub:    stub,
	}
}

// Submit posts the payload to the product's quotation endpoint and returns
// the raw response body, including provider-reported failure shapes. Any
// transport or protocol failure is converted into the provider's structured
// failure shape rather than an error; the conversation relays it as-is.
func (c *Client) Submit(ctx context.Context, product session.Product, payload json.RawMessage) json.RawMessage {
	if c.stub {
		log.Printf("quote: stubbed submission for %s", product)
		return stubResponse(product)
	}

	path, ok := endpoints[product]
	if !ok {
		return failureResponse(fmt.Sprintf("Invalid product '%s' for quote generation.", product))
	}
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failureResponse(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("quote: submitting %s payload to %s", product, url)
	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("quote: %s submission failed: %v", product, err)
		return failureResponse(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("quote: reading %s response failed: %v", product, err)
		return failureResponse(err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("quote: %s submission returned %d: %s", product, resp.StatusCode, body)
		return failureResponse(fmt.Sprintf("quote API returned status %d", resp.StatusCode))
	}
	if !json.Valid(body) {
		return failureResponse("quote API returned a malformed response")
	}
	return body
}

func failureResponse(msg string) json.RawMessage {
	out, _ := json.Marshal(map[string]any{
		"success": "false",
		"errors":  []string{msg},
	})
	return out
}

func stubResponse(product session.Product) json.RawMessage {
	if product == session.ProductFamily {
		return json.RawMessage(`{"success":"ok","data":{"premiums":[{"productPlan":"bronze","monthly_premium":"7.77"}]}}`)
	}
	return json.RawMessage(`{"success":"true","data":{"premiums":{"basic":{"discounted_premium":21.00}}}}`)
}
