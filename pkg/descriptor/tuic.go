package descriptor

import "net/url"

// parseTUIC parses tuic:// URIs. TUIC's connection fields live under a
// transport-specific settings block rather than the usual vnext/servers
// shape, so its address lives at streamSettings.tuicSettings.server.
func parseTUIC(uri string, port int) (*Descriptor, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, &ParseError{Kind: ParseMalformed, Scheme: "tuic", Reason: err.Error()}
	}
	address := u.Hostname()
	uuid := u.User.Username()
	password, _ := u.User.Password()
	if address == "" || uuid == "" {
		return nil, &ParseError{Kind: ParseMissingField, Scheme: "tuic", Reason: "missing address or uuid"}
	}
	q := u.Query()
	srvPort := portOf(u, 443)

	d := newBaseDescriptor(port)
	stream := &StreamSettings{
		Network:  "tuic",
		Security: "tls",
		TUICSettings: map[string]interface{}{
			"server":             address,
			"port":               srvPort,
			"uuid":               uuid,
			"password":           password,
			"congestionControl":  first(q, "congestion_control", "bbr"),
			"udpRelayMode":       first(q, "udp_relay_mode", "native"),
		},
		TLSSettings: map[string]interface{}{
			"serverName":    first(q, "sni", address),
			"allowInsecure": true,
			"alpn":          splitCSV(first(q, "alpn", "h3")),
		},
	}

	outbound := Outbound{Protocol: "tuic", Tag: "proxy", Stream: stream}
	d.Outbounds = append([]Outbound{outbound}, d.Outbounds...)
	d.Candidate = Candidate{
		URI: uri, Scheme: SchemeTUIC, Host: address, Port: srvPort, Credential: uuid,
		Transport: TransportTUIC, Security: SecurityTLS, TLS: TLSParams{SNI: first(q, "sni", address)},
	}
	return d, nil
}
