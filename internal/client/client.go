// Package client fetches capability documents from upstream WMS services.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/delta10/layer-catalog/internal/config"
	"github.com/delta10/layer-catalog/internal/utils"
)

const requestTimeout = 25 * time.Second

type Client struct {
	httpClient *http.Client
}

func New() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// FetchCapabilities requests the GetCapabilities document of the given
// service. Configured header values go through environment substitution
// just before the request is sent.
func (c *Client) FetchCapabilities(ctx context.Context, service config.Service) ([]byte, error) {
	requestURL, err := capabilitiesURL(service.URL)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not construct capabilities request: %w", err)
	}

	for headerKey, headerValue := range service.Headers {
		request.Header.Set(headerKey, utils.EnvSubst(headerValue))
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("could not fetch capabilities response: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capabilities request returned status %d", response.StatusCode)
	}

	doc, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read capabilities response: %w", err)
	}

	return doc, nil
}

// capabilitiesURL appends the GetCapabilities query to the service URL,
// keeping any parameters already present.
func capabilitiesURL(serviceURL string) (string, error) {
	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("could not parse service URL: %w", err)
	}

	query := parsed.Query()
	query.Set("service", "WMS")
	query.Set("request", "GetCapabilities")
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
