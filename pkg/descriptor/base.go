package descriptor

// ParseFunc parses one scheme's URI body into a Descriptor.
type ParseFunc func(uri string, port int) (*Descriptor, error)

// handlers maps a scheme to its parser, mirroring the dispatch-by-attribute-
// name lookup the reference implementation used — here an explicit table
// instead of reflection.
var handlers = map[Scheme]ParseFunc{
	SchemeVMess:       parseVMess,
	SchemeVLESS:       parseVLESS,
	SchemeTrojan:      parseTrojan,
	SchemeShadowsocks: parseShadowsocks,
	SchemeTUIC:        parseTUIC,
	SchemeHysteria2:   parseHysteria2,
}

// Parse routes uri to its scheme's handler and returns the resulting
// outbound descriptor. SSR is a deliberate, explicit skip (the engine does
// not support it) rather than an error.
func Parse(uri string, port int) (*Descriptor, error) {
	scheme, _, ok := splitScheme(uri)
	if !ok {
		return nil, &ParseError{Kind: ParseMalformed, Scheme: "", Reason: "no scheme separator"}
	}
	if Scheme(scheme) == SchemeSSR {
		return nil, &ParseError{Kind: ParseUnsupportedScheme, Scheme: scheme, Reason: "SSR is not supported by the proxy engine"}
	}
	fn, ok := handlers[Scheme(scheme)]
	if !ok {
		return nil, &ParseError{Kind: ParseUnsupportedScheme, Scheme: scheme, Reason: "no handler registered"}
	}
	return fn(uri, port)
}

func splitScheme(uri string) (scheme, rest string, ok bool) {
	idx := indexOf(uri, "://")
	if idx < 0 {
		return "", "", false
	}
	return lower(uri[:idx]), uri[idx+3:], true
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// newBaseDescriptor builds the skeleton every scheme handler starts from:
// a loopback HTTP inbound, a "direct" fallback outbound, and the
// private-IP routing rule that keeps local traffic off the proxy.
func newBaseDescriptor(port int) *Descriptor {
	return &Descriptor{
		Port: port,
		Inbounds: []Inbound{{
			Listen:   "127.0.0.1",
			Port:     port,
			Protocol: "http",
		}},
		Outbounds: []Outbound{{
			Protocol: "freedom",
			Tag:      "direct",
		}},
		RoutingRules: []RoutingRule{{
			Type:        "field",
			IP:          []string{"geoip:private"},
			OutboundTag: "direct",
		}},
	}
}

// streamSettingsInput bundles the fields every scheme handler extracts
// from its URI before handing them to buildStreamSettings.
type streamSettingsInput struct {
	Net         string
	Security    string
	Path        string
	Host        string
	SNI         string
	ALPN        string
	Fingerprint string
	ServiceName string
	RealityPBK  string
	RealitySID  string
	RealitySpX  string
}

// buildStreamSettings constructs the streamSettings block for a primary
// outbound: the TLS/Reality/XTLS security layer, and the transport-level
// settings (ws/grpc/http/quic) for the chosen network type.
//
// The reference implementation placed the transport-settings branch after
// an unconditional early return in a sibling function, making it dead
// code; here it lives in the same function as the security layer so both
// halves of the stream settings are always applied together.
func buildStreamSettings(in streamSettingsInput) *StreamSettings {
	s := &StreamSettings{
		Network:  in.Net,
		Security: in.Security,
	}

	if in.Security == "tls" || in.Security == "reality" || in.Security == "xtls" {
		sni := in.SNI
		if sni == "" {
			sni = in.Host
		}
		fp := in.Fingerprint
		if fp == "" {
			fp = "chrome"
		}
		tlsSettings := map[string]interface{}{
			"serverName":    sni,
			"allowInsecure": true,
			"fingerprint":   fp,
		}
		if in.ALPN != "" {
			tlsSettings["alpn"] = splitCSV(in.ALPN)
		}
		switch in.Security {
		case "reality":
			tlsSettings["show"] = false
			tlsSettings["publicKey"] = in.RealityPBK
			tlsSettings["shortId"] = in.RealitySID
			tlsSettings["spiderX"] = in.RealitySpX
			s.RealitySettings = tlsSettings
		case "xtls":
			s.XTLSSettings = tlsSettings
		default:
			s.TLSSettings = tlsSettings
		}
	}

	switch in.Net {
	case "ws":
		headers := map[string]interface{}{}
		if in.Host != "" {
			headers["Host"] = in.Host
		}
		s.WSSettings = map[string]interface{}{
			"path":    in.Path,
			"headers": headers,
		}
	case "grpc":
		s.GRPCSettings = map[string]interface{}{
			"serviceName": in.ServiceName,
			"multiMode":   true,
		}
	case "http":
		var hosts []string
		if in.Host != "" {
			hosts = []string{in.Host}
		}
		s.HTTPSettings = map[string]interface{}{
			"path": in.Path,
			"host": hosts,
		}
	case "quic":
		s.QUICSettings = map[string]interface{}{
			"security": in.Host,
			"key":      in.Path,
			"header":   map[string]interface{}{"type": "none"},
		}
	}

	return s
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
