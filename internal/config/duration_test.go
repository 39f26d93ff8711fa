package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		text    string
		want    time.Duration
		wantErr bool
	}{
		{"90s", 90 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"30", 30 * time.Second, false},
		{"2.5", 2500 * time.Millisecond, false},
		{" 500ms ", 500 * time.Millisecond, false},
		{"", 0, false},
		{"-5s", 0, true},
		{"-3", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseDuration(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	var cfg struct {
		Timeout Duration `yaml:"timeout"`
		Delay   Duration `yaml:"delay"`
	}
	if err := yaml.Unmarshal([]byte("timeout: 45\ndelay: 2m\n"), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Timeout.Duration != 45*time.Second || cfg.Delay.Duration != 2*time.Minute {
		t.Errorf("decoded %v / %v", cfg.Timeout, cfg.Delay)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(out), "timeout: 45s") || !strings.Contains(string(out), "delay: 2m0s") {
		t.Errorf("Marshal() = %q", out)
	}
}
