package io

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Rom errors
	ErrRomSize = errors.New(f("rom larger than %d bytes", ROM_LIMIT))
)
