package artifact

import (
	"bytes"
	"reflect"
)

// Equal reports whether a and b are the same variant holding equal values.
// References, embeddings and variant extras such as delimiters are ignored.
func Equal(a, b Artifact) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Tag() != b.Tag() {
		return false
	}

	if la, ok := a.(*ListArtifact); ok {
		lb := b.(*ListArtifact)
		if len(la.Value) != len(lb.Value) {
			return false
		}
		for i := range la.Value {
			if !Equal(la.Value[i], lb.Value[i]) {
				return false
			}
		}
		return true
	}

	va, vb := a.value(), b.value()
	if ba, ok := va.([]byte); ok {
		bb, ok := vb.([]byte)
		return ok && bytes.Equal(ba, bb)
	}
	if reflect.DeepEqual(va, vb) {
		return true
	}
	switch a.(type) {
	case *GenericArtifact, *ActionArtifact:
		return jsonEqual(va, vb)
	}
	return false
}

// jsonEqual compares free-form values by their canonical JSON encoding, so
// an int and the float64 it decodes back to are equal.
func jsonEqual(a, b any) bool {
	ta, err := canonicalJSON(a)
	if err != nil {
		return false
	}
	tb, err := canonicalJSON(b)
	return err == nil && ta == tb
}
