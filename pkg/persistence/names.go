package persistence

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Ext is the file extension of every SSTable.
	Ext = ".sst"

	filePrefix = "sst-"
	tmpSuffix  = ".tmp"
)

// FileName returns the base name of the SSTable for generation gen.
func FileName(gen uint64) string {
	return fmt.Sprintf("%s%d%s", filePrefix, gen, Ext)
}

// ParseFileName extracts the generation from a name produced by FileName.
func ParseFileName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, Ext) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), Ext)
	if digits == "" {
		return 0, false
	}
	gen, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// IsTempName reports whether name is the scratch file of an interrupted
// Create.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, Ext+tmpSuffix)
}
