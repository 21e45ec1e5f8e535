package descriptor

import "net/url"

// parseVLESS handles vless://, and by extension Reality and XTLS variants
// distinguished only by their security= query parameter.
func parseVLESS(uri string, port int) (*Descriptor, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, &ParseError{Kind: ParseMalformed, Scheme: "vless", Reason: err.Error()}
	}
	address := u.Hostname()
	uuid := u.User.Username()
	if address == "" || uuid == "" {
		return nil, &ParseError{Kind: ParseMissingField, Scheme: "vless", Reason: "missing address or uuid"}
	}

	q := u.Query()
	security := first(q, "security", "none")
	network := first(q, "type", "tcp")
	flow := first(q, "flow", "")
	if security == "xtls" && flow == "" {
		flow = "xtls-rprx-direct"
	}

	srvPort := portOf(u, 443)

	d := newBaseDescriptor(port)
	stream := buildStreamSettings(streamSettingsInput{
		Net:         network,
		Security:    security,
		Path:        first(q, "path", "/"),
		Host:        first(q, "host", address),
		SNI:         first(q, "sni", address),
		ALPN:        first(q, "alpn", "h2,http/1.1"),
		Fingerprint: first(q, "fp", "chrome"),
		ServiceName: first(q, "serviceName", ""),
		RealityPBK:  first(q, "pbk", ""),
		RealitySID:  first(q, "sid", ""),
		RealitySpX:  first(q, "spiderX", "/"),
	})

	outbound := Outbound{
		Protocol: "vless",
		Tag:      "proxy",
		Settings: map[string]interface{}{
			"vnext": []map[string]interface{}{{
				"address": address,
				"port":    srvPort,
				"users": []map[string]interface{}{{
					"id":         uuid,
					"encryption": "none",
					"flow":       flow,
				}},
			}},
		},
		Stream: stream,
	}
	d.Outbounds = append([]Outbound{outbound}, d.Outbounds...)
	d.Candidate = Candidate{
		URI: uri, Scheme: SchemeVLESS, Host: address, Port: srvPort, Credential: uuid,
		Transport: Transport(network), Security: Security(security),
		TLS: TLSParams{SNI: first(q, "sni", address), Fingerprint: first(q, "fp", ""), Flow: flow,
			RealityPBK: first(q, "pbk", ""), RealitySID: first(q, "sid", ""), RealitySpX: first(q, "spiderX", "")},
	}
	return d, nil
}

func first(q url.Values, key, def string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return def
}

func portOf(u *url.URL, def int) int {
	if p := u.Port(); p != "" {
		n, err := toInt(p)
		if err == nil {
			return n
		}
	}
	return def
}
