package static

import (
	"bytes"
	"debug/pe"
	"errors"
	"fmt"
	"strings"
)

// ErrFormat marks a binary whose container structure could not be parsed.
// It never aborts an analysis; the extractor degrades instead.
var ErrFormat = errors.New("container format error")

// Header holds the PE file and optional header fields used for classification.
type Header struct {
	Machine              uint16 `json:"machine"`
	MachineName          string `json:"machine_name"`
	Timestamp            uint32 `json:"timestamp"`
	NumberOfSections     int    `json:"number_of_sections"`
	SizeOfOptionalHeader uint16 `json:"size_of_optional_header"`
	Characteristics      uint16 `json:"characteristics"`
	EntryPoint           uint32 `json:"entry_point"`
	ImageBase            uint64 `json:"image_base"`
	SectionAlignment     uint32 `json:"section_alignment"`
	FileAlignment        uint32 `json:"file_alignment"`
	Subsystem            uint16 `json:"subsystem"`
	Is64Bit              bool   `json:"is_64bit"`
}

// Library is one imported DLL with its symbols in import-table order.
type Library struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

type container struct {
	header   Header
	sections []string
	imports  []Library
}

func hasPESignature(data []byte) bool {
	return len(data) >= 2 && data[0] == 'M' && data[1] == 'Z'
}

// parseContainer parses data as a PE image. debug/pe can panic on hostile
// offsets, so panics are converted to ErrFormat.
func parseContainer(data []byte) (c *container, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("%w: parser panic: %v", ErrFormat, r)
		}
	}()

	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer f.Close()

	c = &container{
		header: Header{
			Machine:              f.Machine,
			MachineName:          machineName(f.Machine),
			Timestamp:            f.TimeDateStamp,
			NumberOfSections:     int(f.NumberOfSections),
			SizeOfOptionalHeader: f.SizeOfOptionalHeader,
			Characteristics:      f.Characteristics,
		},
	}

	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		c.header.EntryPoint = oh.AddressOfEntryPoint
		c.header.ImageBase = uint64(oh.ImageBase)
		c.header.SectionAlignment = oh.SectionAlignment
		c.header.FileAlignment = oh.FileAlignment
		c.header.Subsystem = oh.Subsystem
	case *pe.OptionalHeader64:
		c.header.EntryPoint = oh.AddressOfEntryPoint
		c.header.ImageBase = oh.ImageBase
		c.header.SectionAlignment = oh.SectionAlignment
		c.header.FileAlignment = oh.FileAlignment
		c.header.Subsystem = oh.Subsystem
		c.header.Is64Bit = true
	}

	for _, s := range f.Sections {
		if s == nil {
			continue
		}
		c.sections = append(c.sections, strings.TrimRight(s.Name, "\x00"))
	}

	symbols, err := f.ImportedSymbols()
	if err != nil {
		return nil, fmt.Errorf("%w: import table: %v", ErrFormat, err)
	}
	c.imports = groupImports(symbols)

	return c, nil
}

// groupImports turns debug/pe "symbol:dll" pairs into libraries, keeping first-seen
// order of libraries and symbols and dropping duplicate symbols within a library.
func groupImports(symbols []string) []Library {
	libs := []Library{}
	index := make(map[string]int)
	seen := make(map[string]map[string]bool)

	for _, entry := range symbols {
		i := strings.LastIndex(entry, ":")
		if i <= 0 || i == len(entry)-1 {
			continue
		}
		fn, dll := entry[:i], entry[i+1:]

		pos, ok := index[dll]
		if !ok {
			pos = len(libs)
			index[dll] = pos
			libs = append(libs, Library{Name: dll, Symbols: []string{}})
			seen[dll] = make(map[string]bool)
		}
		if seen[dll][fn] {
			continue
		}
		seen[dll][fn] = true
		libs[pos].Symbols = append(libs[pos].Symbols, fn)
	}
	return libs
}

func machineName(m uint16) string {
	switch m {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "i386"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "amd64"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return "armnt"
	case pe.IMAGE_FILE_MACHINE_UNKNOWN:
		return "unknown"
	default:
		return fmt.Sprintf("0x%x", m)
	}
}
