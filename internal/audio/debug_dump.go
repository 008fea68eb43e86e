package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tollefsen/whisperd/internal/resample"
)

// writeDebugDump writes the session's resampled 16 kHz mono PCM to a WAV
// file under the state directory's debug/ folder, gated by debug.audio_dump.
func (c *Capture) writeDebugDump() {
	if len(c.debugPCM) == 0 {
		return
	}

	path, err := debugDumpPath()
	if err != nil {
		c.logDebugDumpFailure("create debug dir", err)
		return
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		c.logDebugDumpFailure("open debug file", err)
		return
	}
	defer file.Close()

	if err := writePCM16WAV(file, c.debugPCM, resample.TargetRate, 1); err != nil {
		c.logDebugDumpFailure("write debug file", err)
		return
	}

	if c.logger != nil {
		c.logger.Info("wrote audio debug dump", "path", path)
	}
}

func (c *Capture) logDebugDumpFailure(action string, err error) {
	if c.logger != nil {
		c.logger.Warn("audio debug dump failed", "action", action, "error", err.Error())
	}
}

// debugDumpPath resolves a timestamped WAV path under
// $XDG_STATE_HOME/whisperd/debug, creating the directory if needed.
func debugDumpPath() (string, error) {
	stateDir := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}

	debugDir := filepath.Join(stateDir, "whisperd", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}

	name := fmt.Sprintf("audio-%s.wav", time.Now().Format("20060102-150405.000"))
	return filepath.Join(debugDir, name), nil
}

// writePCM16WAV writes raw little-endian 16-bit PCM with a minimal WAV header.
func writePCM16WAV(file *os.File, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	chunkSize := uint32(36 + len(pcm))
	subChunk2Size := uint32(len(pcm))

	header := make([]byte, 44)
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], chunkSize)
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], subChunk2Size)

	if _, err := file.Write(header); err != nil {
		return err
	}
	_, err := file.Write(pcm)
	return err
}
