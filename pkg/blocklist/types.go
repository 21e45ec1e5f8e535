// Package blocklist sources the IP/domain blacklist and banned-payload
// list the URI validator and network optimiser consult, from either a
// local YAML file (hot-reloaded via fsnotify) or a Git repository
// (polled and re-pulled on an interval).
package blocklist

import "context"

// Blocklist is an immutable snapshot of the blacklist data a Source last
// loaded.
type Blocklist struct {
	IPs      map[string]bool
	Domains  []string
	Payloads []string
}

// Contains reports whether address is blacklisted: an exact IP match, or a
// suffix match against any listed domain.
func (b Blocklist) Contains(address string) bool {
	if address == "" {
		return false
	}
	if b.IPs[address] {
		return true
	}
	for _, d := range b.Domains {
		if hasSuffixFold(address, d) {
			return true
		}
	}
	return false
}

func hasSuffixFold(s, suffix string) bool {
	if len(suffix) > len(s) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}

// raw is the on-disk YAML shape both sources parse.
type raw struct {
	IPs      []string `yaml:"ips"`
	Domains  []string `yaml:"domains"`
	Payloads []string `yaml:"payloads"`
}

func (r raw) toBlocklist() Blocklist {
	ips := make(map[string]bool, len(r.IPs))
	for _, ip := range r.IPs {
		ips[ip] = true
	}
	return Blocklist{IPs: ips, Domains: r.Domains, Payloads: r.Payloads}
}

// Source loads a Blocklist and optionally watches for changes.
type Source interface {
	Load(ctx context.Context) (Blocklist, error)
	Watch(ctx context.Context, onChange func(Blocklist)) error
}
