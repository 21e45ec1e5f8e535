package descriptor

import "encoding/json"

// ToEngineConfig renders the descriptor as the JSON document the engine
// adapter writes to a temp config file and launches with `run -c`.
func (d *Descriptor) ToEngineConfig() ([]byte, error) {
	cfg := map[string]interface{}{
		"log": map[string]interface{}{"loglevel": "warning"},
	}

	inbounds := make([]map[string]interface{}, 0, len(d.Inbounds))
	for _, ib := range d.Inbounds {
		inbounds = append(inbounds, map[string]interface{}{
			"listen":   ib.Listen,
			"port":     ib.Port,
			"protocol": ib.Protocol,
			"settings": map[string]interface{}{"timeout": 0, "allowTransparent": false, "userLevel": 0},
			"tag":      "http-in",
		})
	}
	cfg["inbounds"] = inbounds

	outbounds := make([]map[string]interface{}, 0, len(d.Outbounds))
	for _, ob := range d.Outbounds {
		entry := map[string]interface{}{"protocol": ob.Protocol, "tag": ob.Tag}
		if ob.Settings != nil {
			entry["settings"] = ob.Settings
		}
		if ob.Stream != nil {
			entry["streamSettings"] = streamSettingsJSON(ob.Stream)
		}
		outbounds = append(outbounds, entry)
	}
	cfg["outbounds"] = outbounds

	rules := make([]map[string]interface{}, 0, len(d.RoutingRules))
	for _, r := range d.RoutingRules {
		rules = append(rules, map[string]interface{}{
			"type": r.Type, "ip": r.IP, "outboundTag": r.OutboundTag,
		})
	}
	cfg["routing"] = map[string]interface{}{
		"domainStrategy": "IPIfNonMatch",
		"rules":          rules,
	}

	return json.Marshal(cfg)
}

func streamSettingsJSON(s *StreamSettings) map[string]interface{} {
	out := map[string]interface{}{
		"network":  s.Network,
		"security": s.Security,
	}
	if s.TLSSettings != nil {
		out["tlsSettings"] = s.TLSSettings
	}
	if s.RealitySettings != nil {
		out["realitySettings"] = s.RealitySettings
	}
	if s.XTLSSettings != nil {
		out["xtlsSettings"] = s.XTLSSettings
	}
	if s.WSSettings != nil {
		out["wsSettings"] = s.WSSettings
	}
	if s.GRPCSettings != nil {
		out["grpcSettings"] = s.GRPCSettings
	}
	if s.HTTPSettings != nil {
		out["httpSettings"] = s.HTTPSettings
	}
	if s.QUICSettings != nil {
		out["quicSettings"] = s.QUICSettings
	}
	if s.TUICSettings != nil {
		out["tuicSettings"] = s.TUICSettings
	}
	if s.HysteriaSettings != nil {
		out["hysteriaSettings"] = s.HysteriaSettings
	}
	if s.Sockopt != nil {
		out["sockopt"] = s.Sockopt
	}
	return out
}
