// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.AuthProvider == nil {
		t.Fatal("DefaultOptions left AuthProvider nil")
	}
	if opts.AuditLogger == nil {
		t.Fatal("DefaultOptions left AuditLogger nil")
	}

	info, err := opts.AuthProvider.Validate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("nop provider rejected a token: %v", err)
	}
	if info.UserID != "local-user" {
		t.Errorf("UserID = %q, want local-user", info.UserID)
	}
	if !info.HasRole("admin") {
		t.Error("local user should carry the admin role")
	}
}

func TestServiceOptionsFluent(t *testing.T) {
	base := DefaultOptions()
	custom := base.WithAuth(NewStaticTokenProvider([]byte("tok"))).
		WithAudit(NewSlogAuditLogger(nil))

	if _, ok := custom.AuthProvider.(*StaticTokenProvider); !ok {
		t.Errorf("WithAuth did not install the provider, got %T", custom.AuthProvider)
	}
	if _, ok := custom.AuditLogger.(*SlogAuditLogger); !ok {
		t.Errorf("WithAudit did not install the logger, got %T", custom.AuditLogger)
	}
	// The fluent calls must not mutate the original.
	if _, ok := base.AuthProvider.(*NopAuthProvider); !ok {
		t.Errorf("WithAuth mutated the receiver, got %T", base.AuthProvider)
	}
}

func TestStaticTokenProvider(t *testing.T) {
	provider := NewStaticTokenProvider([]byte("secret-token"))

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "correct token", token: "secret-token", wantErr: false},
		{name: "wrong token", token: "wrong", wantErr: true},
		{name: "empty token", token: "", wantErr: true},
		{name: "prefix only", token: "secret", wantErr: true},
		{name: "token with suffix", token: "secret-token-x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := provider.Validate(context.Background(), tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("Validate(%q) err = %v, want ErrUnauthorized", tt.token, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%q) unexpected error: %v", tt.token, err)
			}
			if info.UserID != "api-client" {
				t.Errorf("UserID = %q, want api-client", info.UserID)
			}
		})
	}
}

func TestStaticTokenProviderRepeatedUse(t *testing.T) {
	provider := NewStaticTokenProvider([]byte("tok"))
	// The enclave must survive multiple open/destroy cycles.
	for i := 0; i < 3; i++ {
		if _, err := provider.Validate(context.Background(), "tok"); err != nil {
			t.Fatalf("validation %d failed: %v", i, err)
		}
	}
}

func TestSlogAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := logger.Log(context.Background(), AuditEvent{
		EventType:    "run.delete",
		UserID:       "api-client",
		Action:       "delete",
		ResourceType: "run",
		ResourceID:   "20250101_120000_ab12cd34",
		Outcome:      "success",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"run.delete", "api-client", "20250101_120000_ab12cd34", "success"} {
		if !strings.Contains(out, want) {
			t.Errorf("log record missing %q: %s", want, out)
		}
	}
	if err := logger.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
}
