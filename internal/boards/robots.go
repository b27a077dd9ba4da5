package boards

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RobotsRules holds disallow rules for a user-agent. Path matching follows
// common practice: Disallow: /api forbids any path starting with /api.
type RobotsRules struct {
	disallowPrefixes []string
}

// Allowed returns false if the URL path is disallowed by the parsed rules.
// Empty path or uninitialized rules are treated as allowed.
func (r *RobotsRules) Allowed(path string) bool {
	if r == nil || len(r.disallowPrefixes) == 0 {
		return true
	}
	path = normalizePath(path)
	for _, prefix := range r.disallowPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}

// FetchRobots fetches robots.txt for a board's base URL using the provided
// client, with the same User-Agent the scraper sends on posting fetches so
// board-specific rules apply.
func FetchRobots(ctx context.Context, client *http.Client, baseURL string) ([]byte, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/robots.txt"
	u.RawQuery = ""
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("robots.txt fetch failed: status %d for %s", resp.StatusCode, u.String())
	}
	return io.ReadAll(resp.Body)
}

// ParseRobots parses a robots.txt body and returns the rules for userAgent.
// The first User-agent block that matches (exact or "*") wins; Disallow lines
// are collected with prefix-based matching.
func ParseRobots(body []byte, userAgent string) *RobotsRules {
	r := &RobotsRules{}
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	var inMatchingBlock bool
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "user-agent:") {
			agent := strings.TrimSpace(line[len("user-agent:"):])
			inMatchingBlock = agent == "*" || strings.EqualFold(agent, userAgent)
			continue
		}
		if inMatchingBlock && strings.HasPrefix(strings.ToLower(line), "disallow:") {
			path := strings.TrimSpace(line[len("disallow:"):])
			if path != "" {
				r.disallowPrefixes = append(r.disallowPrefixes, normalizePath(path))
			}
		}
	}
	return r
}

// PathFromURL returns the path component of rawURL, or "/" if parsing fails.
func PathFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	return normalizePath(u.Path)
}
