package capture

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
)

// OpenFFmpegWebcam captures from a camera device scaled to width x height.
func OpenFFmpegWebcam(deviceName string, targetFPS uint, width, height int) (*FFmpegSource, error) {
	return startFFmpeg(webcamArgs(runtime.GOOS, deviceName, targetFPS, width, height), width, height)
}

func webcamArgs(goos, deviceName string, targetFPS uint, width, height int) []string {
	var input []string
	if goos == "windows" {
		input = []string{"-f", "dshow", "-i", fmt.Sprintf("video=%s", deviceName)}
	} else {
		input = []string{"-f", "v4l2", "-i", deviceName}
	}

	return append(input,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", targetFPS, width, height),
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	)
}

var dshowVideoDevice = regexp.MustCompile(`"([^"]+)"\s+\(video\)`)

// ListCameras enumerates capture devices known to ffmpeg.
func ListCameras() ([]string, error) {
	if runtime.GOOS != "windows" {
		return []string{"/dev/video0", "/dev/video1"}, nil
	}

	cmd := exec.Command("ffmpeg", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// ffmpeg exits non-zero after listing
	_ = cmd.Run()

	return parseDshowDevices(stderr.String()), nil
}

func parseDshowDevices(output string) []string {
	var cameras []string
	seen := make(map[string]bool)

	for _, m := range dshowVideoDevice.FindAllStringSubmatch(output, -1) {
		name := m[1]
		if name != "dummy" && !seen[name] {
			cameras = append(cameras, name)
			seen[name] = true
		}
	}
	return cameras
}
