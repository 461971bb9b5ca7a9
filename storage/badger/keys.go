package badger

import (
	"fmt"
	"strings"

	"github.com/poiesic/artifex/storage"
)

// Key prefixes for different data types
const (
	vectorPrefix     = "vec"
	checkpointPrefix = "chkpt"
)

// validateNamespace rejects namespaces that would break prefix scans.
func validateNamespace(namespace string) error {
	if strings.Contains(namespace, ":") {
		return fmt.Errorf("%w: %q contains ':'", storage.ErrInvalidNamespace, namespace)
	}
	return nil
}

// makeVectorKey generates a key for a vector entry.
// Format: vec:namespace:id
func makeVectorKey(namespace, id string) []byte {
	return []byte(vectorPrefix + ":" + namespace + ":" + id)
}

// makeNamespacePrefix generates the scan prefix for all entries of a namespace.
// Format: vec:namespace:
func makeNamespacePrefix(namespace string) []byte {
	return []byte(vectorPrefix + ":" + namespace + ":")
}

// idFromVectorKey strips the namespace prefix from key.
func idFromVectorKey(key []byte, namespace string) string {
	return string(key[len(makeNamespacePrefix(namespace)):])
}

// makeCheckpointKey generates a key for job checkpoints.
func makeCheckpointKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, name))
}
