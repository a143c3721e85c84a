package computegraph

import (
	"crypto/sha1"
	"encoding"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"reflect"
	"sort"
)

// Fingerprint is a content-address over a node's logic or a resolved input
// value, used by ComputationCache to decide whether a node's last computed
// outputs can be reused. Two equal values (ignoring field order) always
// produce the same Fingerprint; a changed exported field, a renamed field, or
// a differently-typed value produces a different one.
type Fingerprint [sha1.Size]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }
func (f Fingerprint) IsZero() bool   { return f == Fingerprint{} }

// fingerprintOf computes a Fingerprint over an arbitrary Go value: a node's
// executable struct, or a value resolved for one of its input ports.
//
// Adapted from the reflective struct-hashing algorithm used elsewhere in
// this codebase to content-address graph nodes: same field-sort-by-name
// discipline for order-independence, same architecture-independent integer
// encodings (varints for int/uint, fixed-width big-endian for sized numeric
// kinds), generalized here to also accept non-struct
// top-level values (an input value is just as often a usize or a string as
// it is a struct).
func fingerprintOf(v any) (Fingerprint, error) {
	h := sha1.New()
	t := reflect.TypeOf(v)
	if t == nil {
		// a nil interface value: still a legitimate (if unusual) resolved
		// input; its fingerprint is the hash of nothing.
		var out Fingerprint
		copy(out[:], h.Sum(nil))
		return out, nil
	}
	h.Write([]byte(t.PkgPath()))
	h.Write([]byte(t.Name()))
	if err := hashValue(h, reflect.ValueOf(v)); err != nil {
		return Fingerprint{}, fmt.Errorf("computegraph: fingerprint %T: %w", v, err)
	}
	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out, nil
}

// mustFingerprintOf panics on an unhashable value. It is used for a node's
// own executable struct and for override and fallback values taken from a
// ComputationContext, where an unhashable value is treated as a programming
// bug rather than a runtime condition.
func mustFingerprintOf(v any) Fingerprint {
	fp, err := fingerprintOf(v)
	if err != nil {
		panic(fmt.Sprintf("computegraph: %v", err))
	}
	return fp
}

// combineFingerprints folds a node's own content fingerprint together with
// the fingerprints of its resolved inputs, in port order, into the single
// Fingerprint ComputationCache keys its entries on.
func combineFingerprints(fps ...Fingerprint) Fingerprint {
	h := sha1.New()
	for _, fp := range fps {
		h.Write(fp[:])
	}
	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out
}

func hashValue(digest hash.Hash, value reflect.Value) error {
	if x, ok := value.Interface().(encoding.BinaryMarshaler); ok {
		b, err := x.MarshalBinary()
		if err != nil {
			return fmt.Errorf("binary marshal: %w", err)
		}
		digest.Write(b)
		return nil
	}

	if value.Kind() == reflect.Interface {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}

	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			value = reflect.New(value.Type().Elem()).Elem()
		} else {
			value = value.Elem()
		}
	}

	switch value.Kind() {
	case reflect.Struct:
		fields := reflect.VisibleFields(value.Type())
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		for _, field := range fields {
			if !field.IsExported() {
				continue
			}
			digest.Write([]byte(field.Name))
			if err := hashValue(digest, value.FieldByIndex(field.Index)); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		}
		return nil
	case reflect.String:
		digest.Write([]byte(value.String()))
		return nil
	case reflect.Int:
		buf := make([]byte, binary.MaxVarintLen64)
		n := binary.PutVarint(buf, value.Int())
		digest.Write(buf[:n])
		return nil
	case reflect.Uint:
		buf := make([]byte, binary.MaxVarintLen64)
		n := binary.PutUvarint(buf, value.Uint())
		digest.Write(buf[:n])
		return nil
	case reflect.Bool, reflect.Float32, reflect.Float64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return binary.Write(digest, binary.BigEndian, value.Interface())
	case reflect.Array, reflect.Slice:
		for i := 0; i < value.Len(); i++ {
			if err := hashValue(digest, value.Index(i)); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case reflect.Map:
		keys := value.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface()) })
		for _, k := range keys {
			if err := hashValue(digest, k); err != nil {
				return fmt.Errorf("map key: %w", err)
			}
			if err := hashValue(digest, value.MapIndex(k)); err != nil {
				return fmt.Errorf("map value: %w", err)
			}
		}
		return nil
	case reflect.Invalid:
		return nil
	default:
		return fmt.Errorf("unsupported kind %s", value.Kind())
	}
}
