// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/io"
)

// keymap maps the left hand of a QWERTY keyboard onto the hex pad.
//
//	1 2 3 4      1 2 3 C
//	q w e r  ->  4 5 6 D
//	a s d f      7 8 9 E
//	z x c v      A 0 B F
var keymap = map[byte]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

const (
	keyEscape = 0x1b
	keyCtrlC  = 0x03
)

func main() {
	var compile string
	var output string
	var hz int
	var cycles int
	var hold int
	var seed int64
	var strict bool
	var border bool
	var verbose bool

	flag.StringVar(&compile, "c", "", "assembly file to compile")
	flag.StringVar(&output, "o", "", "Save compiled ROM to file, do not execute")
	flag.IntVar(&hz, "hz", emulator.TIMER_HZ, "Frames per second")
	flag.IntVar(&cycles, "cycles", emulator.CYCLES_PER_FRAME, "Instructions per frame")
	flag.IntVar(&hold, "hold", 6, "Frames a key stays pressed after a keystroke")
	flag.Int64Var(&seed, "seed", 0, "Random seed (0 for time based)")
	flag.BoolVar(&strict, "strict", false, "Halt on unknown instructions")
	flag.BoolVar(&border, "b", true, "Draw a border around the display")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix(filepath.Base(os.Args[0]) + ": ")

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Cpu.Strict = strict
	emu.CyclesPerFrame = cycles
	if seed != 0 {
		emu.Cpu.Random = io.NewRandom(seed)
	}

	if len(compile) != 0 {
		if flag.NArg() != 0 {
			log.Fatalf("Unknown arguments: %v", flag.Args())
		}

		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		prog, err := asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		if len(output) != 0 {
			err = os.WriteFile(output, prog.Binary(), 0o644)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
			return
		}

		emu.Program = prog
		err = emu.Reset()
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	} else {
		if flag.NArg() != 1 {
			log.Fatalf("usage: %v [options] rom.ch8 | -c source.asm", os.Args[0])
		}

		path := flag.Arg(0)
		rom, err := io.OpenRom(os.DirFS(filepath.Dir(path)), filepath.Base(path))
		if err != nil {
			log.Fatal(err)
		}

		err = emu.Load(rom)
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}
	}

	err := run(emu, hz, hold, border)
	if err != nil {
		log.Print(emu.Cpu.String())
		log.Printf("0x%03x: %v", emu.Pc(), emu.Code())
		log.Fatal(err)
	}
}

// run drives the emulator at hz frames per second until the program faults
// or escape is pressed. Keystrokes arrive over a channel so that only this
// loop ever touches the emulator.
func run(emu *emulator.Emulator, hz int, hold int, border bool) (err error) {
	if hz <= 0 {
		hz = emulator.TIMER_HZ
	}
	if hold <= 0 {
		hold = 1
	}

	term := &Terminal{}
	err = term.Open(os.Stdin, os.Stdout)
	if err != nil {
		return
	}
	defer term.Close()

	cols, rows := io.SCREEN_WIDTH, io.SCREEN_HEIGHT/2
	if border {
		cols, rows = cols+2, rows+2
	}
	if !term.Fits(cols, rows) {
		log.Printf("terminal smaller than %vx%v, display will be clipped\r", cols, rows)
	}

	screen := &io.Screen{Output: os.Stdout, Border: border}
	err = screen.Begin()
	if err != nil {
		return
	}
	defer screen.End()

	keys := make(chan byte, 16)
	go func() {
		defer close(keys)
		var one [1]byte
		for {
			n, err := os.Stdin.Read(one[:])
			if err != nil {
				return
			}
			if n == 1 {
				keys <- one[0]
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	var held [io.KEY_COUNT]int
	var buzzing bool
	for {
		select {
		case ch, ok := <-keys:
			if !ok || ch == keyEscape || ch == keyCtrlC {
				return
			}
			key, ok := keymap[ch]
			if ok {
				emu.Keyboard.SetKey(key, true)
				held[key] = hold
			}
		case <-ticker.C:
			var sound bool
			sound, err = emu.Frame()
			if err != nil {
				return
			}

			release(&emu.Keyboard, &held)

			if sound && !buzzing {
				err = screen.Bell()
				if err != nil {
					return
				}
			}
			buzzing = sound

			if emu.Display.Dirty {
				grid := emu.Display.PixelGrid()
				err = screen.Render(&grid)
				if err != nil {
					return
				}
				emu.Display.Dirty = false
			}
		}
	}
}

// release counts down the hold time of each pressed key, and releases
// the keys whose time has run out.
func release(kb *io.Keyboard, held *[io.KEY_COUNT]int) {
	for key := range kb.Pressed() {
		if held[key] == 0 {
			continue
		}
		held[key]--
		if held[key] == 0 {
			kb.SetKey(key, false)
		}
	}
}
