package capture

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"
)

const bytePerPixel = 4

// FFmpegSource decodes frames through an ffmpeg child process writing raw
// RGBA frames to its stdout. Each Read consumes exactly one frame.
type FFmpegSource struct {
	closeOnce sync.Once

	width  int
	height int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	buffer []byte
}

func startFFmpeg(args []string, width, height int) (*FFmpegSource, error) {
	cmd := exec.Command("ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	return &FFmpegSource{
		width:  width,
		height: height,
		cmd:    cmd,
		stdout: stdout,
		buffer: make([]byte, width*height*bytePerPixel),
	}, nil
}

// OpenFFmpegFile probes the file for its dimensions and starts decoding it.
func OpenFFmpegFile(path string, targetFPS uint) (*FFmpegSource, error) {
	w, h, err := probeVideoDimensions(path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}
	return startFFmpeg(fileArgs(path, targetFPS), int(w), int(h))
}

func fileArgs(path string, targetFPS uint) []string {
	args := []string{"-i", path}
	if targetFPS > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%d", targetFPS))
	}
	return append(args,
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	)
}

func (s *FFmpegSource) Read() (image.Image, error) {
	if _, err := io.ReadFull(s.stdout, s.buffer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndOfStream, err)
	}

	pixelData := make([]byte, len(s.buffer))
	copy(pixelData, s.buffer)

	return &image.RGBA{
		Pix:    pixelData,
		Stride: s.width * bytePerPixel,
		Rect:   image.Rect(0, 0, s.width, s.height),
	}, nil
}

func (s *FFmpegSource) Close() error {
	s.closeOnce.Do(func() {
		s.stdout.Close()
		if s.cmd != nil && s.cmd.Process != nil {
			s.cmd.Process.Kill()
			s.cmd.Wait()
		}
	})
	return nil
}

type probeData struct {
	Streams []struct {
		Width  uint16 `json:"width"`
		Height uint16 `json:"height"`
	} `json:"streams"`
}

func probeVideoDimensions(path string) (uint16, uint16, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (uint16, uint16, error) {
	var data probeData
	if err := json.Unmarshal(output, &data); err != nil {
		return 0, 0, err
	}

	if len(data.Streams) == 0 {
		return 0, 0, fmt.Errorf("no video streams found")
	}

	s := data.Streams[0]
	if s.Width == 0 || s.Height == 0 {
		return 0, 0, fmt.Errorf("invalid stream size %dx%d", s.Width, s.Height)
	}
	return s.Width, s.Height, nil
}
