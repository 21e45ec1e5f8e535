package descriptor

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
)

// parseShadowsocks accepts both SIP002 (ss://method:pass@host:port,
// userinfo possibly base64) and legacy (ss://base64(method:pass@host:port))
// forms, including bracketed IPv6 hosts.
func parseShadowsocks(uri string, port int) (*Descriptor, error) {
	_, rest, _ := splitScheme(uri)
	rest, remark := splitFragment(rest)

	var address, method, password string
	var srvPort int

	if idx := strings.LastIndex(rest, "@"); idx >= 0 {
		userInfo, hostInfo := rest[:idx], rest[idx+1:]

		decodedUser, err := unquoteString(userInfo)
		if err == nil && strings.Contains(decodedUser, ":") {
			parts := strings.SplitN(decodedUser, ":", 2)
			method, password = parts[0], parts[1]
		} else {
			padded := userInfo + strings.Repeat("=", (4-len(userInfo)%4)%4)
			decoded, derr := base64.StdEncoding.DecodeString(padded)
			if derr != nil || !strings.Contains(string(decoded), ":") {
				return nil, &ParseError{Kind: ParseDecodeError, Scheme: "ss", Reason: "invalid userinfo"}
			}
			parts := strings.SplitN(string(decoded), ":", 2)
			method, password = parts[0], parts[1]
		}

		var portStr string
		if strings.HasPrefix(hostInfo, "[") {
			end := strings.LastIndex(hostInfo, "]")
			if end < 0 {
				return nil, &ParseError{Kind: ParseMalformed, Scheme: "ss", Reason: "unterminated IPv6 literal"}
			}
			address = hostInfo[1:end]
			portStr = strings.TrimPrefix(hostInfo[end+1:], ":")
		} else {
			i := strings.LastIndex(hostInfo, ":")
			if i < 0 {
				return nil, &ParseError{Kind: ParseMissingField, Scheme: "ss", Reason: "missing port"}
			}
			address, portStr = hostInfo[:i], hostInfo[i+1:]
		}
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, &ParseError{Kind: ParseMalformed, Scheme: "ss", Reason: "non-numeric port"}
		}
		srvPort = p
	} else {
		padded := rest + strings.Repeat("=", (4-len(rest)%4)%4)
		decoded, err := base64.StdEncoding.DecodeString(padded)
		if err != nil {
			return nil, &ParseError{Kind: ParseDecodeError, Scheme: "ss", Reason: err.Error()}
		}
		at := strings.LastIndex(string(decoded), "@")
		if at < 0 {
			return nil, &ParseError{Kind: ParseMalformed, Scheme: "ss", Reason: "legacy body missing '@'"}
		}
		userInfo, hostInfo := string(decoded[:at]), string(decoded[at+1:])
		parts := strings.SplitN(userInfo, ":", 2)
		if len(parts) != 2 {
			return nil, &ParseError{Kind: ParseMalformed, Scheme: "ss", Reason: "legacy userinfo missing ':'"}
		}
		method, password = parts[0], parts[1]
		i := strings.LastIndex(hostInfo, ":")
		if i < 0 {
			return nil, &ParseError{Kind: ParseMissingField, Scheme: "ss", Reason: "missing port"}
		}
		address = hostInfo[:i]
		p, err := strconv.Atoi(hostInfo[i+1:])
		if err != nil {
			return nil, &ParseError{Kind: ParseMalformed, Scheme: "ss", Reason: "non-numeric port"}
		}
		srvPort = p
	}

	if address == "" || srvPort == 0 || method == "" || password == "" {
		return nil, &ParseError{Kind: ParseMissingField, Scheme: "ss", Reason: "incomplete shadowsocks URI"}
	}

	tag := "proxy"
	if remark != "" {
		tag = remark
	}

	d := newBaseDescriptor(port)
	outbound := Outbound{
		Protocol: "shadowsocks",
		Tag:      tag,
		Settings: map[string]interface{}{
			"servers": []map[string]interface{}{{
				"address":  address,
				"port":     srvPort,
				"method":   method,
				"password": password,
			}},
		},
	}
	d.Outbounds = append([]Outbound{outbound}, d.Outbounds...)
	d.Candidate = Candidate{
		URI: uri, Scheme: SchemeShadowsocks, Host: address, Port: srvPort, Credential: method + ":" + password,
		Transport: TransportTCP, Security: SecurityNone, Remark: remark,
	}
	return d, nil
}

func splitFragment(s string) (body, remark string) {
	if i := strings.Index(s, "#"); i >= 0 {
		r, err := url.QueryUnescape(s[i+1:])
		if err != nil {
			r = s[i+1:]
		}
		return s[:i], r
	}
	return s, ""
}

func unquoteString(s string) (string, error) {
	return url.QueryUnescape(s)
}
