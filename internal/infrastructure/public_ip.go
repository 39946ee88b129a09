package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// LookupPublicIP asks an ipify-style endpoint for the caller's address.
// JSON bodies are read from their "ip" field, anything else is taken as plain text.
func LookupPublicIP(ctx context.Context, client *http.Client, lookupURL string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ip lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("ip lookup failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	var ip string
	if gjson.ValidBytes(body) {
		ip = gjson.GetBytes(body, "ip").String()
	} else {
		ip = strings.TrimSpace(string(body))
	}
	if ip == "" {
		return "", fmt.Errorf("ip lookup returned no address")
	}
	return ip, nil
}
