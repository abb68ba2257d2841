package api

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"lms/internal/constants"
)

var (
	avatarBackground = color.RGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xff}
	avatarForeground = color.RGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}
)

// defaultAvatar is rendered once per process: a head and shoulders
// silhouette on a flat background.
var defaultAvatar = sync.OnceValues(func() ([]byte, error) {
	edge := constants.AvatarEdge
	img := image.NewRGBA(image.Rect(0, 0, edge, edge))

	head := circle{cx: edge / 2, cy: edge * 2 / 5, r: edge / 5}
	shoulders := circle{cx: edge / 2, cy: edge + edge/8, r: edge * 9 / 20}
	for y := 0; y < edge; y++ {
		for x := 0; x < edge; x++ {
			c := avatarBackground
			if head.contains(x, y) || shoulders.contains(x, y) {
				c = avatarForeground
			}
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding default avatar: %w", err)
	}
	return buf.Bytes(), nil
})

type circle struct {
	cx, cy, r int
}

func (c circle) contains(x, y int) bool {
	dx, dy := x-c.cx, y-c.cy
	return dx*dx+dy*dy <= c.r*c.r
}

var serverStarted = time.Now()

// GET /static/default-avatar.png
func serveDefaultAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := defaultAvatar()
	if err != nil {
		slog.Error("error rendering default avatar", "error", err)
		internalError(w)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, "default-avatar.png", serverStarted, bytes.NewReader(data))
}
