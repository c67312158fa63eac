// Package httpclient provides a small generic helper for JSON GET endpoints.
package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetResource fetches baseURL+endpoint and decodes the JSON body into T.
// Responses outside okStatuses are an error.
func GetResource[T any](client *http.Client, baseURL, endpoint string, okStatuses []int) (T, error) {
	return GetResourceWithHeader[T](client, baseURL, endpoint, nil, okStatuses)
}

// GetResourceWithHeader is GetResource with extra request headers, for
// endpoints behind API keys.
func GetResourceWithHeader[T any](client *http.Client, baseURL, endpoint string, header http.Header, okStatuses []int) (T, error) {
	var resource T

	req, err := http.NewRequest(http.MethodGet, baseURL+endpoint, nil)
	if err != nil {
		return resource, fmt.Errorf("couldn't build request for %s: %w", endpoint, err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return resource, fmt.Errorf("couldn't get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	ok := false
	for _, status := range okStatuses {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resource, fmt.Errorf("unexpected status %d for %s: %s", resp.StatusCode, endpoint, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(&resource); err != nil {
		return resource, fmt.Errorf("couldn't decode %s response: %w", endpoint, err)
	}
	return resource, nil
}
