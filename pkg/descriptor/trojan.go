package descriptor

import "net/url"

// parseTrojan handles trojan:// URIs: userinfo is the password, security
// defaults to tls (unlike VLESS, which defaults to none).
func parseTrojan(uri string, port int) (*Descriptor, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, &ParseError{Kind: ParseMalformed, Scheme: "trojan", Reason: err.Error()}
	}
	address := u.Hostname()
	password := u.User.Username()
	if address == "" || password == "" {
		return nil, &ParseError{Kind: ParseMissingField, Scheme: "trojan", Reason: "missing address or password"}
	}

	q := u.Query()
	srvPort := portOf(u, 443)

	d := newBaseDescriptor(port)
	stream := buildStreamSettings(streamSettingsInput{
		Net:         first(q, "type", "tcp"),
		Security:    first(q, "security", "tls"),
		Path:        first(q, "path", "/"),
		Host:        first(q, "host", address),
		SNI:         first(q, "sni", address),
		ALPN:        first(q, "alpn", "h2,http/1.1"),
		Fingerprint: first(q, "fp", "chrome"),
		ServiceName: first(q, "serviceName", ""),
	})

	outbound := Outbound{
		Protocol: "trojan",
		Tag:      "proxy",
		Settings: map[string]interface{}{
			"servers": []map[string]interface{}{{
				"address":  address,
				"port":     srvPort,
				"password": password,
			}},
		},
		Stream: stream,
	}
	d.Outbounds = append([]Outbound{outbound}, d.Outbounds...)
	d.Candidate = Candidate{
		URI: uri, Scheme: SchemeTrojan, Host: address, Port: srvPort, Credential: password,
		Transport: Transport(first(q, "type", "tcp")), Security: Security(first(q, "security", "tls")),
		TLS: TLSParams{SNI: first(q, "sni", address)},
	}
	return d, nil
}
