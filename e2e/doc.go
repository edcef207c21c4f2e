// Package e2e holds the live end-to-end tests. They need a running
// stack and Chrome and are built only with -tags e2e:
//
//	go test -tags e2e ./e2e/...
//
// Settings come from the same sources as the agentprobe command:
// BACKEND_PORT, UNIFIED_BASE_URL, TEST_WORKER_INDEX, .env and the
// AGENTPROBE_* variables.
package e2e
