// Package audiosrc implements the sample-source and sample-sink
// collaborators around the core detector: live microphone capture, WAV
// file replay/recording, and offline calibration helpers. None of this
// participates in detection itself — it only produces or records the
// int16 PCM the detector consumes.
package audiosrc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WavReader reads 16-bit PCM mono or stereo WAV files, exposing samples
// directly as int16 — the native type the detector wants, avoiding a
// float32 round trip.
type WavReader struct {
	file       *os.File
	SampleRate int
	Channels   int
	DataSize   int
}

// NewWavReader opens filename and parses its RIFF/WAVE header.
func NewWavReader(filename string) (*WavReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	riffHeader := make([]byte, 12)
	if _, err := io.ReadFull(f, riffHeader); err != nil {
		f.Close()
		return nil, err
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		f.Close()
		return nil, fmt.Errorf("audiosrc: not a WAVE file")
	}

	var channels, sampleRate, bitsPerSample, dataSize int
	var dataStart int64
	foundFmt, foundData := false, false

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			f.Close()
			return nil, err
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])
		padding := int64(chunkSize % 2)

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				f.Close()
				return nil, fmt.Errorf("audiosrc: fmt chunk too small")
			}
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, fmtData); err != nil {
				f.Close()
				return nil, err
			}
			if padding > 0 {
				f.Seek(padding, io.SeekCurrent)
			}
			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			foundFmt = true
		case "data":
			dataSize = int(chunkSize)
			pos, _ := f.Seek(0, io.SeekCurrent)
			dataStart = pos
			foundData = true
			if foundFmt {
				goto haveHeader
			}
			if _, err := f.Seek(int64(chunkSize)+padding, io.SeekCurrent); err != nil {
				f.Close()
				return nil, err
			}
		default:
			if _, err := f.Seek(int64(chunkSize)+padding, io.SeekCurrent); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

haveHeader:
	if !foundFmt || !foundData {
		f.Close()
		return nil, fmt.Errorf("audiosrc: missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		f.Close()
		return nil, fmt.Errorf("audiosrc: only 16-bit PCM supported, got %d bits", bitsPerSample)
	}

	if _, err := f.Seek(dataStart, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	return &WavReader{file: f, SampleRate: sampleRate, Channels: channels, DataSize: dataSize}, nil
}

// ReadSamples reads up to count mono frames, taking the first channel of
// multi-channel files.
func (r *WavReader) ReadSamples(count int) ([]int16, error) {
	buf := make([]byte, count*r.Channels*2)

	n, err := io.ReadFull(r.file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}

	numFrames := n / (2 * r.Channels)
	out := make([]int16, numFrames)

	for i := 0; i < numFrames; i++ {
		offset := i * 2 * r.Channels
		out[i] = int16(binary.LittleEndian.Uint16(buf[offset : offset+2]))
	}

	return out, nil
}

func (r *WavReader) Close() error { return r.file.Close() }

// WavWriter writes mono 16-bit PCM WAV files, patching the RIFF header
// with the final size on Close.
type WavWriter struct {
	file       *os.File
	sampleRate int
	dataSize   int
}

// NewWavWriter creates filename and reserves space for the header, to be
// backfilled on Close.
func NewWavWriter(filename string, sampleRate int) (*WavWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(make([]byte, 44)); err != nil {
		f.Close()
		return nil, err
	}
	return &WavWriter{file: f, sampleRate: sampleRate}, nil
}

// WriteSamples appends mono int16 samples to the file.
func (w *WavWriter) WriteSamples(samples []int16) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	n, err := w.file.Write(buf)
	if err != nil {
		return err
	}
	w.dataSize += n
	return nil
}

// Close backfills the RIFF header and closes the file.
func (w *WavWriter) Close() error {
	totalSize := 36 + w.dataSize
	header := make([]byte, 44)

	copy(header[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:], uint32(totalSize))
	copy(header[8:], []byte("WAVE"))

	copy(header[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], 1)
	binary.LittleEndian.PutUint32(header[24:], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(w.sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:], 2)
	binary.LittleEndian.PutUint16(header[34:], 16)

	copy(header[36:], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:], uint32(w.dataSize))

	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}
	if _, err := w.file.Write(header); err != nil {
		return err
	}

	return w.file.Close()
}
