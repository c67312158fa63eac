// Package api is used to call DFlow's prediction markets API endpoints.
package api

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"crossbook/pkg/httpclient"
)

const discoveryTimeout = 5 * time.Second

type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: discoveryTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

type Market struct {
	Ticker    string `json:"ticker"`
	CloseTime int64  `json:"closeTime"`
	Status    string `json:"status"`
}

type Event struct {
	SeriesTicker string    `json:"seriesTicker"`
	Markets      []*Market `json:"markets"`
}

type eventsPage struct {
	Events []*Event `json:"events"`
}

// Header returns the authentication header DFlow expects on every request.
func (c *Client) Header() http.Header {
	header := http.Header{}
	header.Set("x-api-key", c.apiKey)
	return header
}

// GetActiveEvents fetches the active events for a series, with their nested
// markets.
func (c *Client) GetActiveEvents(series string) ([]*Event, error) {
	endpoint := "/events?seriesTickers=" + url.QueryEscape(series) + "&withNestedMarkets=true&status=active"
	page, err := httpclient.GetResourceWithHeader[*eventsPage](c.httpClient, c.baseURL, endpoint, c.Header(), []int{200})
	if err != nil {
		return nil, fmt.Errorf("couldn't get events for series %s: %w", series, err)
	}
	return page.Events, nil
}
