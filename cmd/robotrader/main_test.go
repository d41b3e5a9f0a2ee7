package main

import "testing"

func TestConfigDirArg(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"separate value", []string{"replay", "--config", "/etc/rt"}, "/etc/rt"},
		{"equals form", []string{"replay", "--config=/etc/rt"}, "/etc/rt"},
		{"absent", []string{"replay", "--debug"}, ""},
		{"dangling flag", []string{"replay", "--config"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := configDirArg(tt.args); got != tt.want {
				t.Errorf("configDirArg(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
