package cadcore_test

import (
	"reflect"

	"github.com/cadcore-go/cadcore"
)

// testPersistent/testPersistentUser/testShared/testSession back a minimal
// module used across this package's tests: Apply adds Delta to Value,
// rejecting negative results to exercise TransactionError.

type testPersistent struct{ Value int }
type testPersistentUser struct{ Value int }
type testShared struct{ Value int }
type testSession struct{ Value int }

type testDelta struct{ Delta int }

type negativeValueError struct{}

func (negativeValueError) Error() string { return "value would go negative" }

type testModule struct{}

var testModuleId = cadcore.ParseModuleId("11111111-1111-1111-1111-111111111111")

func (testModule) ModuleId() cadcore.ModuleId { return testModuleId }
func (testModule) HumanName() string          { return "test module" }

var otherModuleId = cadcore.ParseModuleId("22222222-2222-2222-2222-222222222222")

type otherModule struct{}

func (otherModule) ModuleId() cadcore.ModuleId { return otherModuleId }
func (otherModule) HumanName() string          { return "other module" }

func applyDelta(payloadZero func(int) any, extract func(any) int) func(any, any) (any, error) {
	return func(payload any, args any) (any, error) {
		delta := args.(testDelta).Delta
		next := extract(payload) + delta
		if next < 0 {
			return nil, negativeValueError{}
		}
		return payloadZero(next), nil
	}
}

func newTestRegistry() *cadcore.Registry {
	r := cadcore.NewRegistry()
	r.Register(cadcore.ModuleDescriptor{
		Module:             testModule{},
		PersistentType:     reflect.TypeOf(testPersistent{}),
		PersistentUserType: reflect.TypeOf(testPersistentUser{}),
		SharedType:         reflect.TypeOf(testShared{}),
		SessionType:        reflect.TypeOf(testSession{}),
		Persistent: cadcore.SectionDescriptor{
			New:   func() any { return testPersistent{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(testPersistent) == b.(testPersistent) },
			Apply: applyDelta(
				func(n int) any { return testPersistent{Value: n} },
				func(v any) int { return v.(testPersistent).Value },
			),
		},
		PersistentUser: cadcore.SectionDescriptor{
			New:   func() any { return testPersistentUser{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(testPersistentUser) == b.(testPersistentUser) },
			Apply: applyDelta(
				func(n int) any { return testPersistentUser{Value: n} },
				func(v any) int { return v.(testPersistentUser).Value },
			),
		},
		Shared: cadcore.SectionDescriptor{
			New:   func() any { return testShared{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(testShared) == b.(testShared) },
		},
		Session: cadcore.SectionDescriptor{
			New:   func() any { return testSession{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(testSession) == b.(testSession) },
		},
	})
	r.Register(cadcore.ModuleDescriptor{
		Module:         otherModule{},
		PersistentType: reflect.TypeOf(testPersistent{}),
		Persistent: cadcore.SectionDescriptor{
			New:   func() any { return testPersistent{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(testPersistent) == b.(testPersistent) },
		},
		PersistentUser: cadcore.SectionDescriptor{New: func() any { return testPersistentUser{} }, Clone: func(v any) any { return v }},
		Shared:         cadcore.SectionDescriptor{New: func() any { return testShared{} }, Clone: func(v any) any { return v }},
		Session:        cadcore.SectionDescriptor{New: func() any { return testSession{} }, Clone: func(v any) any { return v }},
	})
	return r
}

func mustPath(s string) cadcore.Path {
	p, err := cadcore.NewPath(s)
	if err != nil {
		panic(err)
	}
	return p
}
