package cadcore_test

import (
	"reflect"
	"testing"

	"github.com/cadcore-go/cadcore"
)

func TestRegistryHumanName(t *testing.T) {
	reg := newTestRegistry()
	if got := reg.HumanName(testModuleId); got != "test module" {
		t.Fatalf("got %q, want %q", got, "test module")
	}
	if got := reg.HumanName(cadcore.ParseModuleId("99999999-9999-9999-9999-999999999999")); got != "" {
		t.Fatalf("got %q, want empty for unregistered module", got)
	}
}

func TestRegistryDuplicateRegistrationPanics(t *testing.T) {
	reg := cadcore.NewRegistry()
	descriptor := cadcore.ModuleDescriptor{
		Module:         testModule{},
		PersistentType: reflect.TypeOf(testPersistent{}),
		Persistent: cadcore.SectionDescriptor{
			New:   func() any { return testPersistent{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(testPersistent) == b.(testPersistent) },
		},
	}
	reg.Register(descriptor)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on duplicate registration")
		}
	}()
	reg.Register(descriptor)
}
