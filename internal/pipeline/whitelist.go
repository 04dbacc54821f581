package pipeline

import (
	"context"
	"net/url"
	"strings"

	"sentinela/internal/news"
)

// WhitelistStage applies the allow-list to feed and scrape items. An entry
// without a path separator is a domain rule matching the link host or any
// subdomain. An entry starting with "/" is a host-agnostic path-prefix rule;
// a "host/path" entry restricts the prefix to that host. An item passes when
// it matches any rule; with a non-empty list and no match it is rejected.
// Social items bypass this stage unconditionally.
type WhitelistStage struct{}

func (WhitelistStage) Name() string { return "whitelist" }

type allowRules struct {
	domains   []string
	hostPaths []string
	paths     []string
}

func (s WhitelistStage) Run(_ context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	allowlist := fc.Config.Filters.Whitelist
	if len(allowlist) == 0 {
		return items, nil
	}

	var rules allowRules
	for _, entry := range allowlist {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case strings.HasPrefix(entry, "/"):
			rules.paths = append(rules.paths, entry)
		case strings.Contains(entry, "/"):
			rules.hostPaths = append(rules.hostPaths, entry)
		default:
			rules.domains = append(rules.domains, strings.ToLower(entry))
		}
	}

	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection
	for _, item := range items {
		if item.SourceType == news.SourceSocial {
			kept = append(kept, item)
			continue
		}
		if matchesAllowlist(item.Link, rules) {
			kept = append(kept, item)
			continue
		}
		rejected = append(rejected, reject(s.Name(), item, "link matches no allow-list rule"))
	}

	return kept, rejected
}

func matchesAllowlist(link string, rules allowRules) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	for _, rule := range rules.domains {
		if host == rule || strings.HasSuffix(host, "."+rule) {
			return true
		}
	}

	for _, rule := range rules.paths {
		if strings.HasPrefix(parsed.Path, rule) {
			return true
		}
	}

	for _, rule := range rules.hostPaths {
		ruleHost, rulePath, _ := strings.Cut(rule, "/")
		if !strings.EqualFold(host, ruleHost) {
			continue
		}
		if strings.HasPrefix(strings.TrimPrefix(parsed.Path, "/"), rulePath) {
			return true
		}
	}

	return false
}
