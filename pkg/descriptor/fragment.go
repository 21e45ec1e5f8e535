package descriptor

// fragmentableProtocols are the outbounds InjectFragment will target.
var fragmentableProtocols = map[string]bool{
	"vless": true, "vmess": true, "trojan": true, "shadowsocks": true,
}

// InjectFragment returns a deep copy of d with the primary outbound's
// dialer proxied through a synthetic "fragment" outbound that splits the
// TLS ClientHello across several packets. Descriptors whose primary
// outbound carries no stream settings (plain shadowsocks) get a minimal
// tcp stream block created for them so sockopt has somewhere to live.
func (d *Descriptor) InjectFragment() *Descriptor {
	cp := d.clone()

	var target *Outbound
	for i := range cp.Outbounds {
		if fragmentableProtocols[cp.Outbounds[i].Protocol] {
			target = &cp.Outbounds[i]
			break
		}
	}
	if target == nil {
		return cp
	}
	if target.Stream == nil {
		target.Stream = &StreamSettings{Network: "tcp"}
	}
	if target.Stream.Sockopt == nil {
		target.Stream.Sockopt = map[string]interface{}{}
	}
	target.Stream.Sockopt["dialerProxy"] = "fragment"
	target.Stream.Sockopt["tcpKeepAliveIdle"] = 100

	cp.Outbounds = append(cp.Outbounds, Outbound{
		Protocol: "freedom",
		Tag:      "fragment",
		Settings: map[string]interface{}{
			"fragment": map[string]interface{}{
				"packets":  "tlshello",
				"length":   "100-200",
				"interval": "10-20",
			},
		},
		Stream: &StreamSettings{Sockopt: map[string]interface{}{"tcpKeepAliveIdle": 100}},
	})
	return cp
}

// InjectSNI returns a deep copy of d with serverName overwritten wherever
// TLS, Reality, or XTLS settings exist.
func (d *Descriptor) InjectSNI(sni string) *Descriptor {
	cp := d.clone()
	for i := range cp.Outbounds {
		s := cp.Outbounds[i].Stream
		if s == nil {
			continue
		}
		for _, m := range []map[string]interface{}{s.TLSSettings, s.RealitySettings, s.XTLSSettings} {
			if m != nil {
				m["serverName"] = sni
			}
		}
	}
	return cp
}

func (d *Descriptor) clone() *Descriptor {
	cp := *d
	cp.Inbounds = append([]Inbound(nil), d.Inbounds...)
	cp.Outbounds = make([]Outbound, len(d.Outbounds))
	for i, ob := range d.Outbounds {
		nob := ob
		if ob.Settings != nil {
			nob.Settings = cloneMap(ob.Settings)
		}
		if ob.Stream != nil {
			s := *ob.Stream
			s.TLSSettings = cloneMap(ob.Stream.TLSSettings)
			s.RealitySettings = cloneMap(ob.Stream.RealitySettings)
			s.XTLSSettings = cloneMap(ob.Stream.XTLSSettings)
			s.WSSettings = cloneMap(ob.Stream.WSSettings)
			s.GRPCSettings = cloneMap(ob.Stream.GRPCSettings)
			s.HTTPSettings = cloneMap(ob.Stream.HTTPSettings)
			s.QUICSettings = cloneMap(ob.Stream.QUICSettings)
			s.TUICSettings = cloneMap(ob.Stream.TUICSettings)
			s.HysteriaSettings = cloneMap(ob.Stream.HysteriaSettings)
			s.Sockopt = cloneMap(ob.Stream.Sockopt)
			nob.Stream = &s
		}
		cp.Outbounds[i] = nob
	}
	cp.RoutingRules = append([]RoutingRule(nil), d.RoutingRules...)
	return &cp
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
