// Package features turns static and behavioral observations into the fixed-shape
// numeric vectors consumed by the classifiers.
package features

import (
	"encoding/json"
	"fmt"

	"github.com/y0ug/malxplain/internal/behavior"
	"github.com/y0ug/malxplain/internal/static"
)

// Field indexes one column of the feature schema.
type Field int

const (
	FileSize Field = iota
	SectionCount
	ImportCount
	ImportedLibraryCount
	SuspiciousImportCount
	TotalStrings
	SuspiciousStringCount
	Entropy
	IsPacked
	UnusualSectionCount
	HighEntropy
	BehaviorScore
	TCPConnectionCount
	DNSRequestCount
	HTTPRequestCount
	RegistryKeysCreated
	RegistryValuesSet
	RegistryKeysDeleted
	FilesCreatedCount
	FilesDeletedCount
	FilesModifiedCount
	ProcessesCreatedCount
	LibrariesLoadedCount

	// NumFields is the schema width.
	NumFields
)

var fieldNames = [NumFields]string{
	"file_size",
	"section_count",
	"import_count",
	"imported_library_count",
	"suspicious_import_count",
	"total_strings",
	"suspicious_string_count",
	"entropy",
	"is_packed",
	"unusual_section_count",
	"high_entropy",
	"behavior_score",
	"tcp_connection_count",
	"dns_request_count",
	"http_request_count",
	"registry_keys_created",
	"registry_values_set",
	"registry_keys_deleted",
	"files_created_count",
	"files_deleted_count",
	"files_modified_count",
	"processes_created_count",
	"libraries_loaded_count",
}

func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Names returns the schema field names in column order.
func Names() []string {
	out := make([]string, NumFields)
	copy(out, fieldNames[:])
	return out
}

// FieldByName looks up a schema field.
func FieldByName(name string) (Field, bool) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// Vector is one sample in schema order. Fields with no source data stay 0.
type Vector [NumFields]float64

// Get returns the value of field f.
func (v Vector) Get(f Field) float64 { return v[f] }

// Slice copies the vector into a new slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumFields)
	copy(out, v[:])
	return out
}

// Map returns the vector keyed by field name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, NumFields)
	for i, n := range fieldNames {
		m[n] = v[i]
	}
	return m
}

func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// UnmarshalJSON accepts a name-keyed object. Absent fields default to 0.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*v = Vector{}
	for name, val := range m {
		f, ok := FieldByName(name)
		if !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
		v[f] = val
	}
	return nil
}

// FromSlice builds a vector from a schema-ordered slice.
func FromSlice(xs []float64) (Vector, error) {
	var v Vector
	if len(xs) != int(NumFields) {
		return v, fmt.Errorf("expected %d features, got %d", NumFields, len(xs))
	}
	copy(v[:], xs)
	return v, nil
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Vectorize merges static and behavioral features. Either input may be missing:
// a nil static set or absent behavior features leave their columns at 0.
func Vectorize(fs *static.FeatureSet, bf behavior.Features) Vector {
	var v Vector

	if fs != nil {
		v[FileSize] = float64(fs.File.Size)
		v[SectionCount] = float64(len(fs.Sections))
		v[ImportCount] = float64(fs.ImportCount())
		v[ImportedLibraryCount] = float64(len(fs.Imports))
		v[SuspiciousImportCount] = float64(fs.SuspiciousImportCount)
		v[TotalStrings] = float64(fs.Strings.Total)
		v[SuspiciousStringCount] = float64(len(fs.Strings.Suspicious))
		v[Entropy] = fs.Entropy
		v[IsPacked] = boolf(fs.Packed)
		v[UnusualSectionCount] = float64(len(fs.UnusualSections))
		v[HighEntropy] = boolf(fs.HighEntropy)
	}

	if bf.Present {
		v[BehaviorScore] = float64(bf.BehaviorScore)
		v[TCPConnectionCount] = float64(bf.TCPConnections)
		v[DNSRequestCount] = float64(bf.DNSRequests)
		v[HTTPRequestCount] = float64(bf.HTTPRequests)
		v[RegistryKeysCreated] = float64(bf.KeysCreated)
		v[RegistryValuesSet] = float64(bf.ValuesSet)
		v[RegistryKeysDeleted] = float64(bf.KeysDeleted)
		v[FilesCreatedCount] = float64(bf.FilesCreated)
		v[FilesDeletedCount] = float64(bf.FilesDeleted)
		v[FilesModifiedCount] = float64(bf.FilesModified)
		v[ProcessesCreatedCount] = float64(bf.ProcessesCreated)
		v[LibrariesLoadedCount] = float64(bf.LibrariesLoaded)
	}

	return v
}
