package io

import (
	"errors"
	"io"
	"io/fs"
)

const ROM_LIMIT = 4096 - 0x200 // Largest image that fits above the reserved area.

// ReadRom reads a raw, headerless ROM image.
// Images larger than ROM_LIMIT are rejected as a whole.
func ReadRom(input io.Reader) (rom []byte, err error) {
	data, err := io.ReadAll(io.LimitReader(input, ROM_LIMIT+1))
	if err != nil {
		return
	}

	if len(data) > ROM_LIMIT {
		err = ErrRomSize
		return
	}

	rom = data
	return
}

// OpenRom reads a ROM image from a file system.
func OpenRom(fsys fs.FS, name string) (rom []byte, err error) {
	inf, err := fsys.Open(name)
	if err != nil {
		return
	}
	defer func() {
		err = errors.Join(err, inf.Close())
	}()

	rom, err = ReadRom(inf)
	if err != nil {
		err = &fs.PathError{Op: "read", Path: name, Err: err}
		return
	}

	return
}
