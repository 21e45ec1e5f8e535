// Package descriptor parses proxy connection URIs into the outbound
// configuration consumed by the engine adapter, and carries the data
// model types shared across the pipeline (candidate URI attributes,
// outbound descriptors, transport/security enums).
package descriptor

import "fmt"

// Transport is the wire transport a proxy outbound runs over.
type Transport string

const (
	TransportTCP       Transport = "tcp"
	TransportWS        Transport = "ws"
	TransportGRPC      Transport = "grpc"
	TransportHTTP      Transport = "http"
	TransportQUIC      Transport = "quic"
	TransportTUIC      Transport = "tuic"
	TransportHysteria2 Transport = "hysteria2"
)

// Security is the TLS/Reality/XTLS layer applied on top of a transport.
type Security string

const (
	SecurityNone    Security = "none"
	SecurityTLS     Security = "tls"
	SecurityXTLS    Security = "xtls"
	SecurityReality Security = "reality"
)

// Scheme is a recognised connection-URI scheme.
type Scheme string

const (
	SchemeVMess       Scheme = "vmess"
	SchemeVLESS       Scheme = "vless"
	SchemeTrojan      Scheme = "trojan"
	SchemeShadowsocks Scheme = "ss"
	SchemeTUIC        Scheme = "tuic"
	SchemeHysteria2   Scheme = "hysteria2"
	SchemeSSR         Scheme = "ssr"
)

// TLSParams carries the TLS/Reality/XTLS tuning fields a handler may
// populate, regardless of which scheme produced them.
type TLSParams struct {
	SNI         string
	ALPN        []string
	Fingerprint string
	RealityPBK  string
	RealitySID  string
	RealitySpX  string
	Flow        string
}

// Candidate is a validated, parsed proxy URI's normalised attributes —
// the fields the spec calls out as "derived at parse time".
type Candidate struct {
	URI        string
	Scheme     Scheme
	Host       string
	Port       int
	Credential string
	Transport  Transport
	Security   Security
	TLS        TLSParams
	Path       string
	HostHeader string
	ServiceName string
	Remark     string
}

// Inbound describes the loopback HTTP inbound every generated config
// carries so the engine has something for the probe to dial into.
type Inbound struct {
	Listen   string
	Port     int
	Protocol string
}

// Outbound is one entry in the descriptor's outbound list: the primary
// proxy outbound, the "direct" fallback, or (for the fragment variant)
// the synthetic fragment outbound.
type Outbound struct {
	Protocol  string
	Tag       string
	Settings  map[string]interface{}
	Stream    *StreamSettings
}

// StreamSettings mirrors the engine's streamSettings block: network type,
// security layer, and the settings sub-object for whichever security is
// active, plus socket options used by fragment injection.
type StreamSettings struct {
	Network         string
	Security        string
	TLSSettings     map[string]interface{}
	RealitySettings map[string]interface{}
	XTLSSettings    map[string]interface{}
	WSSettings      map[string]interface{}
	GRPCSettings    map[string]interface{}
	HTTPSettings    map[string]interface{}
	QUICSettings    map[string]interface{}
	TUICSettings    map[string]interface{}
	HysteriaSettings map[string]interface{}
	Sockopt         map[string]interface{}
}

// Descriptor is the structured record consumable by the engine adapter:
// everything needed to synthesise the engine's JSON config file.
type Descriptor struct {
	Candidate Candidate
	Port      int
	Inbounds  []Inbound
	Outbounds []Outbound
	RoutingRules []RoutingRule
}

// RoutingRule is one entry of the descriptor's routing table.
type RoutingRule struct {
	Type        string
	IP          []string
	OutboundTag string
}

// PrimaryOutbound returns the descriptor's primary (non-direct,
// non-fragment) outbound, or false if none is present — callers use this
// to locate the outbound fragment injection or SNI override should touch.
func (d *Descriptor) PrimaryOutbound() (*Outbound, bool) {
	for i := range d.Outbounds {
		if d.Outbounds[i].Tag != "direct" && d.Outbounds[i].Tag != "fragment" {
			return &d.Outbounds[i], true
		}
	}
	return nil, false
}

// ParseErrorKind enumerates the URI Parser's documented failure modes.
type ParseErrorKind string

const (
	ParseMissingField      ParseErrorKind = "missing_field"
	ParseDecodeError       ParseErrorKind = "decode_error"
	ParseUnsupportedScheme ParseErrorKind = "unsupported_scheme"
	ParseMalformed         ParseErrorKind = "malformed"
)

// ParseError reports why a URI could not be parsed into a Descriptor.
type ParseError struct {
	Kind   ParseErrorKind
	Scheme string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s (%s)", e.Scheme, e.Reason, e.Kind)
}
