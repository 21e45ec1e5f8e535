package descriptor

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

type vmessBody struct {
	Add  string      `json:"add"`
	Port interface{} `json:"port"`
	ID   string      `json:"id"`
	Aid  interface{} `json:"aid"`
	Net  string      `json:"net"`
	TLS  string      `json:"tls"`
	Path string      `json:"path"`
	Host string      `json:"host"`
	SNI  string      `json:"sni"`
	ALPN string      `json:"alpn"`
	FP   string      `json:"fp"`
	Scy  string      `json:"scy"`
}

// parseVMess decodes a vmess:// URI: base64 body (padded to a multiple of
// 4 bytes) containing a JSON object of connection parameters.
func parseVMess(uri string, port int) (*Descriptor, error) {
	_, rest, _ := splitScheme(uri)
	body := rest
	if i := strings.IndexAny(body, "?#"); i >= 0 {
		body = body[:i]
	}
	padded := body + strings.Repeat("=", (4-len(body)%4)%4)
	decoded, err := base64.StdEncoding.DecodeString(padded)
	if err != nil {
		if decoded, err = base64.URLEncoding.DecodeString(padded); err != nil {
			return nil, &ParseError{Kind: ParseDecodeError, Scheme: "vmess", Reason: err.Error()}
		}
	}

	var v vmessBody
	if err := json.Unmarshal(decoded, &v); err != nil {
		return nil, &ParseError{Kind: ParseDecodeError, Scheme: "vmess", Reason: err.Error()}
	}
	if v.Add == "" || v.Port == nil || v.ID == "" {
		return nil, &ParseError{Kind: ParseMissingField, Scheme: "vmess", Reason: "missing add/port/id"}
	}

	srvPort, err := toInt(v.Port)
	if err != nil {
		return nil, &ParseError{Kind: ParseMalformed, Scheme: "vmess", Reason: "non-numeric port"}
	}
	aid, _ := toInt(v.Aid)

	net := v.Net
	if net == "" {
		net = "tcp"
	}
	security := v.TLS
	if security == "" {
		security = "none"
	}
	scy := v.Scy
	if scy == "" {
		scy = "auto"
	}

	d := newBaseDescriptor(port)
	stream := buildStreamSettings(streamSettingsInput{
		Net:         net,
		Security:    security,
		Path:        v.Path,
		Host:        v.Host,
		SNI:         v.SNI,
		ALPN:        v.ALPN,
		Fingerprint: v.FP,
		ServiceName: v.Path,
	})

	outbound := Outbound{
		Protocol: "vmess",
		Tag:      "proxy",
		Settings: map[string]interface{}{
			"vnext": []map[string]interface{}{{
				"address": v.Add,
				"port":    srvPort,
				"users": []map[string]interface{}{{
					"id":       v.ID,
					"alterId":  aid,
					"security": scy,
				}},
			}},
		},
		Stream: stream,
	}
	d.Outbounds = append([]Outbound{outbound}, d.Outbounds...)
	d.Candidate = Candidate{
		URI: uri, Scheme: SchemeVMess, Host: v.Add, Port: srvPort, Credential: v.ID,
		Transport: Transport(net), Security: Security(security),
		TLS: TLSParams{SNI: v.SNI, Fingerprint: v.FP},
	}
	return d, nil
}

func toInt(v interface{}) (int, error) {
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case string:
		return strconv.Atoi(x)
	default:
		return 0, &ParseError{Kind: ParseMalformed, Scheme: "vmess", Reason: "unexpected port type"}
	}
}
