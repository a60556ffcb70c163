// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/jangel97/text-to-mongo/pkg/extensions"
)

// TokenEnvVar is the environment variable carrying the service API token.
const TokenEnvVar = "T2M_API_TOKEN"

// TokenGuardFromEnv builds the service's auth provider from the
// environment.
//
// When TokenEnvVar is unset or empty, the open-source default applies: a
// NopAuthProvider that authenticates every request as local-user. When it
// is set, the token is moved into an mlocked memguard enclave and the
// environment variable is cleared so the plaintext does not linger in the
// process environment. The RLIMIT_MEMLOCK soft limit is checked up front;
// a limit too small for memguard's pages is logged as a warning since
// enclave opens would then fail at request time.
func TokenGuardFromEnv(logger *slog.Logger) extensions.AuthProvider {
	if logger == nil {
		logger = slog.Default()
	}
	token := os.Getenv(TokenEnvVar)
	if token == "" {
		logger.Info("no API token configured, requests are unauthenticated")
		return &extensions.NopAuthProvider{}
	}
	_ = os.Unsetenv(TokenEnvVar)

	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &limit); err == nil {
		// memguard locks a handful of guarded pages per enclave open.
		const wantBytes = 64 * 1024
		if limit.Cur != unix.RLIM_INFINITY && limit.Cur < wantBytes {
			logger.Warn("RLIMIT_MEMLOCK soft limit is low for mlocked token storage",
				"limit_bytes", limit.Cur,
				"want_bytes", wantBytes)
		}
	}

	logger.Info("API token loaded into mlocked storage")
	return extensions.NewStaticTokenProvider([]byte(token))
}
