// Package bigchar renders Chinese characters as large block art using half-block characters.
package bigchar

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrNoFont is returned when none of the candidate fonts can be loaded.
var ErrNoFont = errors.New("no CJK font found")

// FontPaths lists common system locations of CJK fonts.
var FontPaths = []string{
	// macOS
	"/System/Library/Fonts/STHeiti Light.ttc",
	"/System/Library/Fonts/PingFang.ttc",
	"/System/Library/Fonts/Hiragino Sans GB.ttc",
	"/Library/Fonts/Arial Unicode.ttf",
	// Linux
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	// Windows
	"C:\\Windows\\Fonts\\msyh.ttc",
	"C:\\Windows\\Fonts\\simsun.ttc",
}

// threshold is the brightness above which a half cell is drawn.
const threshold = 40

// Renderer draws glyphs from one font face and caches the results.
type Renderer struct {
	face font.Face

	mu    sync.Mutex
	cache map[string]string
}

// Load returns a renderer for the first font in paths that parses. With no
// paths, FontPaths is searched.
func Load(paths ...string) (*Renderer, error) {
	if len(paths) == 0 {
		paths = FontPaths
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		face, err := parseFace(data)
		if err != nil {
			continue
		}
		return &Renderer{face: face, cache: make(map[string]string)}, nil
	}
	return nil, ErrNoFont
}

// parseFace tries the data as a font collection first, then as a single
// font.
func parseFace(data []byte) (font.Face, error) {
	opts := &opentype.FaceOptions{Size: 64, DPI: 72}

	if coll, err := opentype.ParseCollection(data); err == nil && coll.NumFonts() > 0 {
		if fnt, err := coll.Font(0); err == nil {
			return opentype.NewFace(fnt, opts)
		}
	}

	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return opentype.NewFace(fnt, opts)
}

// Render draws the first character of text in a block of cols by rows
// terminal cells. It returns "" for a nil renderer or empty text.
func (r *Renderer) Render(text string, cols, rows int) string {
	if r == nil || text == "" || cols <= 0 || rows <= 0 {
		return ""
	}
	char := []rune(text)[0]

	key := fmt.Sprintf("%c/%d/%d", char, cols, rows)
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[key]; ok {
		return cached
	}

	img := r.draw(char)
	rendered := halfBlocks(scaleDown(img, cols, rows*2), cols, rows)
	r.cache[key] = rendered
	return rendered
}

// draw renders a glyph white on black at the face's natural size.
func (r *Renderer) draw(char rune) *image.Gray {
	bounds, _, _ := r.face.GlyphBounds(char)
	glyphWidth := (bounds.Max.X - bounds.Min.X).Ceil()
	glyphHeight := (bounds.Max.Y - bounds.Min.Y).Ceil()

	padding := 4
	width := max(glyphWidth+padding*2, 64)
	height := max(glyphHeight+padding*2, 64)

	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: r.face,
		Dot:  fixed.P((width-glyphWidth)/2, height-padding-bounds.Max.Y.Ceil()),
	}
	d.DrawString(string(char))
	return img
}

// scaleDown scales a grayscale image using area averaging.
func scaleDown(src *image.Gray, width, height int) *image.Gray {
	srcWidth := src.Bounds().Max.X
	srcHeight := src.Bounds().Max.Y
	dst := image.NewGray(image.Rect(0, 0, width, height))

	xRatio := float64(srcWidth) / float64(width)
	yRatio := float64(srcHeight) / float64(height)

	for dy := range height {
		for dx := range width {
			sx1, sy1 := int(float64(dx)*xRatio), int(float64(dy)*yRatio)
			sx2 := min(int(float64(dx+1)*xRatio), srcWidth)
			sy2 := min(int(float64(dy+1)*yRatio), srcHeight)

			var sum, count int
			for sy := sy1; sy < sy2; sy++ {
				for sx := sx1; sx < sx2; sx++ {
					sum += int(src.GrayAt(sx, sy).Y)
					count++
				}
			}
			if count > 0 {
				dst.SetGray(dx, dy, color.Gray{Y: uint8(sum / count)})
			}
		}
	}
	return dst
}

// halfBlocks converts a grayscale image to half-block art. Each cell covers
// two vertical pixels.
func halfBlocks(img *image.Gray, cols, rows int) string {
	var sb strings.Builder
	for row := range rows {
		for col := range cols {
			top := brightness(img, col, row*2) > threshold
			bottom := brightness(img, col, row*2+1) > threshold

			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

func brightness(img *image.Gray, x, y int) uint8 {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return 0
	}
	return img.GrayAt(x, y).Y
}
