package noop

import (
	"context"
	"testing"

	"github.com/Comcast/pcom/discovery"
	"github.com/Comcast/pcom/storage"
)

func TestImpl(t *testing.T) {
	var _ storage.Storage = &Storage{}
}

func TestForgets(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if err := s.PutDevice(ctx, &discovery.Device{SystemId: "tv"}); err != nil {
		t.Fatal(err)
	}
	ds, err := s.GetDevices(ctx)
	if err != nil || len(ds) != 0 {
		t.Fatalf("got %v %v", ds, err)
	}
}
