// Package id generates identifiers for library nodes and auxiliary records.
package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	hexAlphabet  = "0123456789ABCDEF"
	suffixLength = 6
)

// now is swapped in tests.
var now = time.Now

// NewNodeID returns an identifier for a folder or playlist node.
// Format: upper-case hex Unix milliseconds followed by six random hex
// characters (e.g., "18F3A2B4C10" + "9F03AB"). IDs created in later
// milliseconds sort after earlier ones.
func NewNodeID() (string, error) {
	suffix, err := gonanoid.Generate(hexAlphabet, suffixLength)
	if err != nil {
		return "", fmt.Errorf("generate node id suffix: %w", err)
	}
	ms := strings.ToUpper(strconv.FormatInt(now().UnixMilli(), 16))
	return ms + suffix, nil
}

// MustNewNodeID is like NewNodeID but panics if the random source fails.
func MustNewNodeID() string {
	nodeID, err := NewNodeID()
	if err != nil {
		panic(fmt.Sprintf("failed to generate node ID: %v", err))
	}
	return nodeID
}

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "sse-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}
