package cmd

import (
	"strings"
	"testing"
)

func TestResolveExportTarget(t *testing.T) {
	tests := []struct {
		name    string
		db      string
		xlsx    string
		wantErr string
	}{
		{"db target", "sqlite:bank.db", "", ""},
		{"xlsx target", "", "review.xlsx", ""},
		{"no target", "", "", "no export target"},
		{"both targets", "postgres://localhost/bank", "review.xlsx", "conflicting export targets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := resolveExportTarget(tt.db, tt.xlsx)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("resolveExportTarget() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("resolveExportTarget() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
