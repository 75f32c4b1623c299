package save

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"

	"github.com/bryanchriswhite/kasbah/internal/logger"
	"golang.org/x/image/draw"
)

// PreviewWidth is the width of the save dialog preview
const PreviewWidth = 250

// Thumbnail loads the PNG at src and scales it to width, keeping the
// aspect ratio.
func Thumbnail(src string, width int) (*image.RGBA, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}
	return scale(img, width), nil
}

func scale(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	if width <= 0 {
		width = PreviewWidth
	}
	height := 1
	if b.Dx() > 0 {
		height = b.Dy() * width / b.Dx()
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WriteThumbnail writes a PNG preview of src to w.
func WriteThumbnail(w io.Writer, src string, width int) error {
	thumb, err := Thumbnail(src, width)
	if err != nil {
		return err
	}
	return png.Encode(w, thumb)
}

// clipboardCommands are tried in order; the first one found on PATH is used.
var clipboardCommands = [][]string{
	{"wl-copy", "--type", "image/png"},
	{"xclip", "-selection", "clipboard", "-t", "image/png", "-i"},
}

// CopyToClipboard places the PNG at path on the clipboard.
func CopyToClipboard(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}

	for _, argv := range clipboardCommands {
		bin, err := exec.LookPath(argv[0])
		if err != nil {
			continue
		}
		cmd := exec.Command(bin, argv[1:]...)
		cmd.Stdin = bytes.NewReader(data)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s failed: %w", argv[0], err)
		}
		logger.WithComponent("save").Debug().Str("tool", argv[0]).Msg("Copied capture to clipboard")
		return nil
	}
	return fmt.Errorf("no clipboard tool found (install wl-clipboard or xclip)")
}
