package telemetry

import (
	"context"
	"errors"
	"nfce-backend/lib/configutil"
	"os"
	"sync"
	"testing"
)

var setupTestEnvironments sync.Map

// SetupForTesting turns on debug logging and, when a telemetry.json5 sits
// next to the test, exports traces and metrics to the endpoints it names.
// A service name is set up at most once per test binary.
func SetupForTesting(t testing.TB, serviceName string) func() {
	InitSlog(true)

	_, setupAlready := setupTestEnvironments.LoadOrStore(serviceName, struct{}{})
	if setupAlready {
		return func() {}
	}

	config, err := configutil.ReadConfig[Config]("telemetry.json5")
	if errors.Is(err, os.ErrNotExist) {
		return func() {}
	}
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tel, err := Setup(ctx, serviceName, config)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(ctx)
		if err != nil {
			t.Fatal(err)
		}
	}
}
