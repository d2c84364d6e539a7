package main

import (
	"testing"
	"time"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want config
	}{
		{
			name: "defaults",
			args: nil,
			want: config{itemsPerDir: 3, topFiles: 50, logLevel: "info", logFormat: "console"},
		},
		{
			name: "short forms",
			args: []string{"-s", ":8000", "-r", "/tmp", "-e", "walk", "-n", "5"},
			want: config{serve: ":8000", root: "/tmp", engine: "walk", itemsPerDir: 5, topFiles: 50, logLevel: "info", logFormat: "console"},
		},
		{
			name: "clamped",
			args: []string{"--items-per-dir", "50", "--top-files", "3", "--time-window", "-1h"},
			want: config{itemsPerDir: 10, topFiles: 10, logLevel: "info", logFormat: "console"},
		},
		{
			name: "long forms",
			args: []string{"--time-window", "168h", "--db", "/tmp/x.db", "--log-level", "debug", "--log-format", "json", "--metrics-addr", ":9090", "-V"},
			want: config{itemsPerDir: 3, timeWindow: 168 * time.Hour, topFiles: 50, db: "/tmp/x.db", logLevel: "debug", logFormat: "json", metricsAddr: ":9090", version: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args)
			if err != nil {
				t.Fatalf("parseFlags(%q): %v", tt.args, err)
			}
			if *got != tt.want {
				t.Errorf("parseFlags(%q) = %+v; want %+v", tt.args, *got, tt.want)
			}
		})
	}
}

func TestParseFlagsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--no-such-flag"},
		{"-n", "many"},
		{"stray"},
	} {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%q) succeeded; want an error", args)
		}
	}
}
