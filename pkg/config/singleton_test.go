package config

import "testing"

func TestSetConfigAndGetConfigRoundTrip(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "debug"

	SetConfig(&cfg)
	defer SetConfig(nil)

	got := GetConfig()
	if got == nil || got.Logging.Level != "debug" {
		t.Fatalf("expected round-tripped config, got %+v", got)
	}
}

func TestMustGetConfigPanicsWhenUninitialized(t *testing.T) {
	SetConfig(nil)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when config is uninitialized")
		}
	}()
	MustGetConfig()
}
