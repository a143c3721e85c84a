package cadcore_test

import (
	"testing"

	"github.com/cadcore-go/cadcore"
	"github.com/cadcore-go/cadcore/projecttest"
)

func TestProjectConformance(t *testing.T) {
	projecttest.Run(t, func() *cadcore.Project { return cadcore.NewProject() })
}

func TestProjectConformanceAfterMarshalRoundTrip(t *testing.T) {
	// A project reconstructed from a gob round-trip midway through its life
	// should behave identically to one that was never serialized: the
	// conformance suite doesn't know or care which project it got.
	projecttest.Run(t, func() *cadcore.Project {
		proj := cadcore.NewProject()
		data, err := proj.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		restored := &cadcore.Project{}
		if err := restored.UnmarshalBinary(data); err != nil {
			t.Fatal(err)
		}
		return restored
	})
}
