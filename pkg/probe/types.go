// Package probe drives live traffic through a running engine instance to
// measure reachability, latency, jitter, throughput, connectivity, and
// censorship-bypass success.
package probe

// Connectivity records per-service reachability results.
type Connectivity struct {
	Telegram  bool
	Instagram bool
	YouTube   bool
}

// Result is populated on a successful probe.
type Result struct {
	Protocol      string
	Address       string
	PingMs        float64
	JitterMs      float64
	DownloadMbps  float64
	UploadMbps    float64
	BypassOK      bool
	Connectivity  Connectivity
	IP            string
	FragmentMode  bool
	CustomSNI     string
}

// Config carries the target URLs and timeouts the probe needs.
type Config struct {
	PingURL           string
	PingFallbackURL   string
	DownloadURL       string
	UploadURL         string
	CensorshipCheckURL string
	TelegramURL       string
	InstagramURL      string
	YouTubeURL        string
	DomesticCheckURL  string
	Timeout           float64 // seconds, matches reference test_timeout semantics
}

// DefaultConfig mirrors the reference implementation's built-in defaults
// for the services it doesn't require callers to configure explicitly.
func DefaultConfig() Config {
	return Config{
		TelegramURL:      "https://api.telegram.org",
		InstagramURL:     "https://www.instagram.com",
		YouTubeURL:       "https://www.youtube.com",
		PingFallbackURL:  "https://1.1.1.1",
		DomesticCheckURL: "https://www.aparat.com",
		Timeout:          10,
	}
}
