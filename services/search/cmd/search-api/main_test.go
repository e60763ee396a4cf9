package main

import (
	"sync/atomic"
	"testing"

	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type syncCountingCore struct {
	zapcore.Core
	syncs *int32
}

func (c syncCountingCore) Sync() error {
	atomic.AddInt32(c.syncs, 1)
	return nil
}

func TestLoggerSyncedOnStop(t *testing.T) {
	var syncs int32
	logger := zap.New(syncCountingCore{Core: zapcore.NewNopCore(), syncs: &syncs})

	lc := fxtest.NewLifecycle(t)
	syncOnStop(lc, logger)

	lc.RequireStart()
	if n := atomic.LoadInt32(&syncs); n != 0 {
		t.Fatalf("synced %d times before stop", n)
	}
	lc.RequireStop()
	if n := atomic.LoadInt32(&syncs); n != 1 {
		t.Errorf("synced %d times on stop, want 1", n)
	}
}
