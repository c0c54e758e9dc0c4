package engine_test

import (
	"context"
	"fmt"
	"path/filepath"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/engine"
	"github.com/oraclehost/runtime/hostadapter"
	"github.com/oraclehost/runtime/imports"
	"github.com/oraclehost/runtime/internal/testutil"
)

// fixedStore is a workerpool.ProgramStore that always serves one program,
// enough to demonstrate Engine's public surface end to end.
type fixedStore struct {
	binary []byte
	caps   imports.CapabilitySet
}

func (s fixedStore) Lookup(name string) ([]byte, imports.CapabilitySet, bool) {
	if name != "echo" {
		return nil, nil, false
	}
	return s.binary, s.caps, true
}

// This shows the runtime's public entry point: register a managed binary,
// start an Engine, dispatch a Job, and read the guest's reported result.
func Example_dispatch() {
	ctx := context.Background()

	store := fixedStore{
		binary: testutil.ExecutionResultModule([]byte("hello from the sandbox")),
		caps:   imports.CoreSet,
	}

	eng, err := engine.New(ctx, engine.Config{
		CacheDir: filepath.Join(".", "testdata", "example-cache"),
		Workers:  1,
		Store:    store,
		Adapter:  hostadapter.NewTestAdapter(),
	})
	if err != nil {
		fmt.Println("setup error:", err)
		return
	}
	defer eng.Close(ctx)

	result, err := eng.Dispatch(ctx, runtime.Job{ProgramName: "echo"})
	if err != nil {
		fmt.Println("dispatch error:", err)
		return
	}

	fmt.Println(result.Succeeded(), string(result.Result))
	// Output: true hello from the sandbox
}
