// Package testutil builds synthetic inputs for package tests.
package testutil

import "encoding/binary"

// Import is one DLL entry of a synthetic import table.
type Import struct {
	DLL     string
	Symbols []string
}

// PEOptions controls BuildPE. Zero values select plausible defaults.
type PEOptions struct {
	Machine    uint16
	Timestamp  uint32
	EntryPoint uint32
	ImageBase  uint32
	Subsystem  uint16
	// FirstSection names the section holding the import table (default ".idata").
	FirstSection string
	// ExtraSections are appended as empty, virtual-only sections.
	ExtraSections []string
	Imports       []Import
}

const (
	peOffset      = 0x40
	fileHeaderOff = peOffset + 4
	optHeaderOff  = fileHeaderOff + 20
	optHeaderSize = 224
	sectionOff    = optHeaderOff + optHeaderSize
	headersSize   = 0x200
	importRVA     = 0x1000
	maxSections   = (headersSize - sectionOff) / 40
)

// BuildPE assembles a minimal PE32 image that debug/pe can parse, including an
// import table listing opts.Imports in order.
func BuildPE(opts PEOptions) []byte {
	if opts.Machine == 0 {
		opts.Machine = 0x14c
	}
	if opts.ImageBase == 0 {
		opts.ImageBase = 0x400000
	}
	if opts.Subsystem == 0 {
		opts.Subsystem = 3
	}
	if opts.FirstSection == "" {
		opts.FirstSection = ".idata"
	}
	sections := append([]string{opts.FirstSection}, opts.ExtraSections...)
	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}

	idata := buildImportSection(opts.Imports)
	rawSize := (len(idata) + 0x1ff) &^ 0x1ff
	if rawSize == 0 {
		rawSize = 0x200
	}

	img := make([]byte, headersSize+rawSize)
	le := binary.LittleEndian

	img[0], img[1] = 'M', 'Z'
	le.PutUint32(img[0x3c:], peOffset)
	copy(img[peOffset:], "PE\x00\x00")

	fh := img[fileHeaderOff:]
	le.PutUint16(fh[0:], opts.Machine)
	le.PutUint16(fh[2:], uint16(len(sections)))
	le.PutUint32(fh[4:], opts.Timestamp)
	le.PutUint16(fh[16:], optHeaderSize)
	le.PutUint16(fh[18:], 0x0102)

	oh := img[optHeaderOff:]
	le.PutUint16(oh[0:], 0x10b)
	le.PutUint32(oh[16:], opts.EntryPoint)
	le.PutUint32(oh[28:], opts.ImageBase)
	le.PutUint32(oh[32:], 0x1000)
	le.PutUint32(oh[36:], 0x200)
	le.PutUint32(oh[56:], uint32(importRVA+0x1000*len(sections)))
	le.PutUint32(oh[60:], headersSize)
	le.PutUint16(oh[68:], opts.Subsystem)
	le.PutUint32(oh[92:], 16)
	if len(opts.Imports) > 0 {
		le.PutUint32(oh[96+8:], importRVA)
		le.PutUint32(oh[96+12:], uint32((len(opts.Imports)+1)*20))
	}

	for i, name := range sections {
		sh := img[sectionOff+40*i:]
		copy(sh[0:8], name)
		le.PutUint32(sh[8:], 0x1000)
		le.PutUint32(sh[12:], uint32(importRVA+0x1000*i))
		if i == 0 {
			le.PutUint32(sh[16:], uint32(rawSize))
			le.PutUint32(sh[20:], headersSize)
			le.PutUint32(sh[36:], 0xC0000040)
		} else {
			le.PutUint32(sh[36:], 0xE0000020)
		}
	}

	copy(img[headersSize:], idata)
	return img
}

func buildImportSection(imports []Import) []byte {
	if len(imports) == 0 {
		return nil
	}
	le := binary.LittleEndian

	descSize := (len(imports) + 1) * 20
	iltOffsets := make([]int, len(imports))
	off := descSize
	for i, imp := range imports {
		iltOffsets[i] = off
		off += (len(imp.Symbols) + 1) * 4
	}

	sec := make([]byte, off)
	appendString := func(prefixHint bool, s string) int {
		if len(sec)%2 == 1 {
			sec = append(sec, 0)
		}
		pos := len(sec)
		if prefixHint {
			sec = append(sec, 0, 0)
		}
		sec = append(sec, s...)
		sec = append(sec, 0)
		return pos
	}

	for i, imp := range imports {
		namePos := appendString(false, imp.DLL)
		d := sec[i*20:]
		le.PutUint32(d[0:], uint32(importRVA+iltOffsets[i]))
		le.PutUint32(d[12:], uint32(importRVA+namePos))
		le.PutUint32(d[16:], uint32(importRVA+iltOffsets[i]))

		for j, sym := range imp.Symbols {
			hintPos := appendString(true, sym)
			le.PutUint32(sec[iltOffsets[i]+4*j:], uint32(importRVA+hintPos))
		}
	}
	return sec
}
