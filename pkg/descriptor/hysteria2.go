package descriptor

import "net/url"

// parseHysteria2 parses hysteria2:// (and the hy2:// alias) URIs. Like
// TUIC, its address lives under streamSettings.hysteriaSettings.server.
func parseHysteria2(uri string, port int) (*Descriptor, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, &ParseError{Kind: ParseMalformed, Scheme: "hysteria2", Reason: err.Error()}
	}
	address := u.Hostname()
	auth := u.User.Username()
	if address == "" || auth == "" {
		return nil, &ParseError{Kind: ParseMissingField, Scheme: "hysteria2", Reason: "missing address or auth"}
	}
	q := u.Query()
	srvPort := portOf(u, 443)

	d := newBaseDescriptor(port)
	stream := &StreamSettings{
		Network:  "hysteria2",
		Security: "tls",
		HysteriaSettings: map[string]interface{}{
			"server": address,
			"port":   srvPort,
			"auth":   auth,
			"obfs":   first(q, "obfs", ""),
		},
		TLSSettings: map[string]interface{}{
			"serverName":    first(q, "sni", address),
			"allowInsecure": first(q, "insecure", "0") == "1",
		},
	}

	outbound := Outbound{Protocol: "hysteria2", Tag: "proxy", Stream: stream}
	d.Outbounds = append([]Outbound{outbound}, d.Outbounds...)
	d.Candidate = Candidate{
		URI: uri, Scheme: SchemeHysteria2, Host: address, Port: srvPort, Credential: auth,
		Transport: TransportHysteria2, Security: SecurityTLS, TLS: TLSParams{SNI: first(q, "sni", address)},
	}
	return d, nil
}
