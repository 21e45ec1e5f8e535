package validator

import (
	"testing"

	"github.com/proxyfleet/orchestrator/pkg/blocklist"
)

func TestValidateURIRejectsOversized(t *testing.T) {
	v := New(DefaultConfig(), nil)
	long := "vmess://" + string(make([]byte, DefaultMaxURILength+1))
	if v.ValidateURI(long) {
		t.Fatalf("expected oversized URI to be rejected")
	}
}

func TestValidateURIRejectsUnknownScheme(t *testing.T) {
	v := New(DefaultConfig(), nil)
	if v.ValidateURI("ftp://example.com") {
		t.Fatalf("expected unknown scheme to be rejected")
	}
}

func TestValidateURIRejectsSuspiciousPattern(t *testing.T) {
	v := New(DefaultConfig(), nil)
	if v.ValidateURI("vless://uuid@host:443?sni=<script>alert(1)</script>") {
		t.Fatalf("expected script-injection URI to be rejected")
	}
}

func TestValidateURIRejectsConfusableUnicodeBypass(t *testing.T) {
	v := New(DefaultConfig(), nil)
	// Fullwidth characters that NFKC-normalize to "eval("
	if v.ValidateURI("vless://uuid@host:443?x=ｅｖａｌ（") {
		t.Fatalf("expected NFKC-normalized banned payload to be rejected")
	}
}

func TestValidateURIAcceptsOrdinaryURI(t *testing.T) {
	v := New(DefaultConfig(), nil)
	if !v.ValidateURI("vless://uuid@host.example:443?security=tls&sni=host.example") {
		t.Fatalf("expected ordinary URI to pass")
	}
}

func TestIsBlacklistedChecksInfraSuffixes(t *testing.T) {
	v := New(DefaultConfig(), nil)
	if !v.IsBlacklisted("cdn.arvancloud.ir") {
		t.Fatalf("expected infra suffix match to be blacklisted")
	}
}

func TestIsBlacklistedChecksSourceBlocklist(t *testing.T) {
	bl := blocklist.Blocklist{IPs: map[string]bool{"1.2.3.4": true}, Domains: []string{"blocked.example"}}
	v := New(DefaultConfig(), func() blocklist.Blocklist { return bl })
	if !v.IsBlacklisted("1.2.3.4") {
		t.Fatalf("expected IP match")
	}
	if !v.IsBlacklisted("sub.blocked.example") {
		t.Fatalf("expected domain suffix match")
	}
	if v.IsBlacklisted("safe.example") {
		t.Fatalf("expected unrelated domain to pass")
	}
}
