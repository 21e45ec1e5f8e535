// Package validator rejects malformed, oversized, or hostile proxy URIs
// and descriptors before any expensive parsing or network work happens.
package validator

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/proxyfleet/orchestrator/pkg/blocklist"
	"github.com/proxyfleet/orchestrator/pkg/descriptor"
)

// DefaultMaxURILength matches the reference limit of 4096 bytes.
const DefaultMaxURILength = 4096

// DefaultWhitelist is the set of schemes the validator accepts. SSR is
// intentionally included here (it passes validation) and then explicitly
// skipped — not rejected — at the parser stage.
var DefaultWhitelist = map[string]bool{
	"vmess": true, "vless": true, "trojan": true, "ss": true,
	"tuic": true, "hysteria2": true, "ssr": true,
}

// DefaultBannedPayloads are forbidden substrings checked on the
// normalised, lower-cased URI.
var DefaultBannedPayloads = []string{"exec", "system", "eval", "shutdown", "rm ", "del ", "format"}

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)fromCharCode`),
	regexp.MustCompile(`(?i)base64_decode`),
	regexp.MustCompile(`[\x00-\x1F\x7F]`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)</script`),
	regexp.MustCompile(`(?i)onerror`),
	regexp.MustCompile(`(?i)onload`),
	regexp.MustCompile(`\\u00`),
	regexp.MustCompile(`\\x`),
}

// infraBlocked lists CDN/ISP infrastructure hostnames to avoid self-test
// loops against, independent of whatever blocklist.Source is configured.
var infraBlocked = []string{
	"arvancloud.ir", "arvancloud.com",
	"parsonline.com", "parsonline.ir",
	"asiatech.ir",
	"shatel.ir",
	"mci.ir",
	"irancell.ir",
	"rightel.ir",
}

// Config tunes the validator's limits and policy inputs.
type Config struct {
	MaxURILength   int
	Whitelist      map[string]bool
	BannedPayloads []string
}

// DefaultConfig returns the reference limits.
func DefaultConfig() Config {
	return Config{
		MaxURILength:   DefaultMaxURILength,
		Whitelist:      DefaultWhitelist,
		BannedPayloads: DefaultBannedPayloads,
	}
}

// Validator checks candidate URIs and built descriptors against the
// configured policy and a blocklist source.
type Validator struct {
	cfg       Config
	blocklist func() blocklist.Blocklist
}

// New builds a Validator. blocklistFn is called lazily on each check so
// the validator always sees the most recently loaded blocklist snapshot.
func New(cfg Config, blocklistFn func() blocklist.Blocklist) *Validator {
	if cfg.Whitelist == nil {
		cfg.Whitelist = DefaultWhitelist
	}
	if cfg.MaxURILength == 0 {
		cfg.MaxURILength = DefaultMaxURILength
	}
	if blocklistFn == nil {
		blocklistFn = func() blocklist.Blocklist { return blocklist.Blocklist{} }
	}
	return &Validator{cfg: cfg, blocklist: blocklistFn}
}

// ValidateURI reports whether uri passes length, scheme, banned-payload,
// and suspicious-pattern checks.
func (v *Validator) ValidateURI(uri string) bool {
	if uri == "" {
		return false
	}
	if len(uri) > v.cfg.MaxURILength {
		return false
	}
	scheme := strings.ToLower(strings.SplitN(uri, "://", 2)[0])
	if !v.cfg.Whitelist[scheme] {
		return false
	}

	normalized := strings.ToLower(norm.NFKC.String(uri))
	for _, banned := range v.cfg.BannedPayloads {
		if strings.Contains(normalized, banned) {
			return false
		}
	}
	for _, pat := range suspiciousPatterns {
		if pat.MatchString(normalized) {
			return false
		}
	}
	return true
}

// ValidateDescriptor rejects a built descriptor whose outbound server
// addresses are blacklisted.
func (v *Validator) ValidateDescriptor(d *descriptor.Descriptor) bool {
	for _, ob := range d.Outbounds {
		if ob.Protocol == "freedom" {
			continue
		}
		for _, addr := range serverAddresses(ob) {
			if v.IsBlacklisted(addr) {
				return false
			}
		}
	}
	return true
}

func serverAddresses(ob descriptor.Outbound) []string {
	var out []string
	for _, key := range []string{"vnext", "servers"} {
		list, ok := ob.Settings[key].([]map[string]interface{})
		if !ok {
			continue
		}
		for _, entry := range list {
			if addr, ok := entry["address"].(string); ok {
				out = append(out, addr)
			}
		}
	}
	if ob.Stream != nil {
		if ob.Stream.TUICSettings != nil {
			if s, ok := ob.Stream.TUICSettings["server"].(string); ok {
				out = append(out, s)
			}
		}
		if ob.Stream.HysteriaSettings != nil {
			if s, ok := ob.Stream.HysteriaSettings["server"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// IsBlacklisted checks address against the IP/domain blocklist and the
// hard-coded infrastructure suffix list.
func (v *Validator) IsBlacklisted(address string) bool {
	if address == "" {
		return false
	}
	if v.blocklist().Contains(address) {
		return true
	}
	for _, domain := range infraBlocked {
		if address == domain || strings.HasSuffix(address, domain) {
			return true
		}
	}
	return false
}
