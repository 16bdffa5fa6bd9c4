// Command edogscan is the command-line harness for the knock/bell
// detector. In batch mode it reads raw 16-bit PCM and reports knock/ring
// counts exactly like the original scan test utility; with -live or
// -replay it runs the full system (capture/replay, calibration, serial
// relay, LED status) instead.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"knockbell/config"
	"knockbell/detect"
	"knockbell/system"
)

const usage = `Usage: edogscan [-options] infile.pcm [outfile.pcm]

Batch mode options:
  -h         high sensitivity mode (probably more false positives)
  -v         verbose (all diagnostic information)
  -q         quiet (don't even display knock/ring event detections)
  -k         output data samples for knock detection debug
  -r         output data samples for ring detection debug
  -f HEX     set specific option and debug flags (in hex)

Live/replay mode options:
  -live              run against a live capture device instead of a file
  -replay FILE       replay a WAV file through the full system
  -device NAME       capture device name substring (live mode)
  -calibrate         run bell-frequency calibration before detecting
  -serial PORT       relay detections over this serial port
  -record FILE       record captured/replayed audio to FILE
  -bark FILES        comma-separated WAV clips to play back on detection
`

func main() {
	high := flag.Bool("h", false, "high sensitivity mode")
	verbose := flag.Bool("v", false, "verbose diagnostics")
	quiet := flag.Bool("q", false, "suppress event display")
	knockDebug := flag.Bool("k", false, "knock debug taps")
	ringDebug := flag.Bool("r", false, "ring debug taps")
	hexFlags := flag.String("f", "", "explicit flags, hex")

	live := flag.Bool("live", false, "run against a live capture device")
	replay := flag.String("replay", "", "replay a WAV file through the full system")
	device := flag.String("device", "", "capture device name substring")
	calibrate := flag.Bool("calibrate", false, "run calibration before detecting")
	serialPort := flag.String("serial", "", "relay detections over this serial port")
	record := flag.String("record", "", "record captured/replayed audio to this file")
	bark := flag.String("bark", "", "comma-separated WAV clips to play back on detection")

	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *live || *replay != "" {
		runSystem(*live, *replay, *device, *calibrate, *serialPort, *record, *bark)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	runBatch(args, *high, *verbose, *quiet, *knockDebug, *ringDebug, *hexFlags)
}

func runBatch(args []string, high, verbose, quiet, knockDebug, ringDebug bool, hexFlags string) {
	var flags detect.Flags = detect.DispEvents

	if high {
		flags |= detect.HighSensitivity
	}
	if knockDebug {
		flags |= detect.OutpNormalAudio | detect.OutpWindowLevel
	}
	if ringDebug {
		flags |= detect.OutpNormalAudio | detect.OutpFilterLevel
	}
	if verbose {
		flags |= detect.DispThresholds | detect.DispPeaks
	}
	if quiet {
		flags &^= detect.DispEvents
	}
	if hexFlags != "" {
		v, err := strconv.ParseUint(hexFlags, 16, 32)
		if err != nil {
			log.Fatalf("illegal -f value: %v", err)
		}
		flags |= detect.Flags(v)
	}

	infile, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("can't open file for reading: %s: %v", args[0], err)
	}
	defer infile.Close()

	var outfile *os.File
	numTaps := detect.NumTaps(flags)
	if len(args) > 1 {
		outfile, err = os.Create(args[1])
		if err != nil {
			log.Fatalf("can't open file for writing: %s: %v", args[1], err)
		}
		defer outfile.Close()
	} else if numTaps > 0 {
		log.Fatal("need to specify outfile for debug sample data!")
	}

	det := detect.New(detect.DefaultConfig())

	const bufferSamples = 16
	rawBuf := make([]byte, bufferSamples*2)
	in := make([]int16, bufferSamples)
	out := make([]int16, bufferSamples*numTaps)

	var knocks, rings int
	reader := bufio.NewReader(infile)

	for {
		n, err := io.ReadFull(reader, rawBuf)
		sampleCount := n / 2
		if sampleCount == 0 {
			break
		}
		for i := 0; i < sampleCount; i++ {
			in[i] = int16(binary.LittleEndian.Uint16(rawBuf[i*2:]))
		}

		res := det.Scan(in[:sampleCount], out[:sampleCount*numTaps], flags)
		if res&detect.Knock != 0 {
			knocks++
		}
		if res&detect.Bell != 0 {
			rings++
		}

		if outfile != nil && numTaps > 0 {
			outBytes := make([]byte, sampleCount*numTaps*2)
			for i, s := range out[:sampleCount*numTaps] {
				binary.LittleEndian.PutUint16(outBytes[i*2:], uint16(s))
			}
			if _, werr := outfile.Write(outBytes); werr != nil {
				log.Fatalf("can't write to output file: %v", werr)
			}
		}

		if err == io.ErrUnexpectedEOF || err == io.EOF {
			break
		}
	}

	fmt.Printf("final results: %d knocks and %d rings detected\n", knocks, rings)
}

func runSystem(live bool, replay, device string, calibrate bool, serialPort, record, bark string) {
	cfg := config.DefaultConfig()
	cfg.Capture.DeviceName = device
	cfg.Calibrate.Enabled = calibrate
	if serialPort != "" {
		cfg.Sink.SerialEnabled = true
		cfg.Sink.SerialPort = serialPort
	}
	if bark != "" {
		cfg.Sink.BarkEnabled = true
		cfg.Sink.BarkClips = strings.Split(bark, ",")
	}

	sys := system.New(cfg)
	if replay != "" {
		sys.SetReplayFile(replay)
	}
	if record != "" {
		sys.EnableRecording(record)
	}

	sys.OnDetections = func(d detect.Detections) {
		var names []string
		if d&detect.Knock != 0 {
			names = append(names, "KNOCK")
		}
		if d&detect.Bell != 0 {
			names = append(names, "BELL")
		}
		fmt.Printf("[%s] %s\n", time.Now().Format(time.TimeOnly), strings.Join(names, "+"))
	}

	if err := sys.Start(); err != nil {
		log.Fatalf("system start failed: %v", err)
	}
	defer sys.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	fmt.Println("system ready; ctrl-c to quit")
	<-sigChan
	fmt.Println("\nshutting down...")
}
