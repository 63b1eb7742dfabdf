package config

import "testing"

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := loadServerConfig()
	if err != nil {
		t.Fatalf("loadServerConfig err: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("unexpected default addr: %s", cfg.Addr)
	}
}

func TestLoadServerConfigAcceptsFullAddr(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:8081")

	cfg, err := loadServerConfig()
	if err != nil {
		t.Fatalf("loadServerConfig err: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8081" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
}

func TestLoadServerConfigRejectsGarbage(t *testing.T) {
	t.Setenv("PORT", "90 00")

	if _, err := loadServerConfig(); err == nil {
		t.Fatal("expected error for PORT with spaces")
	}
}

func TestAIConfigEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  AIConfig
		want bool
	}{
		{"empty", AIConfig{}, false},
		{"modelOnly", AIConfig{Model: "m"}, false},
		{"apiKey", AIConfig{Model: "m", APIKey: "k"}, true},
		{"akskPair", AIConfig{Model: "m", AccessKey: "a", SecretKey: "s"}, true},
		{"akOnly", AIConfig{Model: "m", AccessKey: "a"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Enabled(); got != tc.want {
				t.Fatalf("Enabled() = %v, want %v", got, tc.want)
			}
		})
	}
}
