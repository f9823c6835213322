// Package export renders the visible canvas to files.
package export

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"SyncBoard/internal/state"

	"github.com/jung-kurt/gofpdf"
)

// pxPerMM maps canvas pixels onto an A4 page.
const pxPerMM = 3.0

// newDocument draws shapes, in order, onto a single A4 page.
func newDocument(shapes []state.Shape) *gofpdf.Fpdf {
	p := gofpdf.New("P", "mm", "A4", "")
	p.AddPage()
	for _, s := range shapes {
		drawShape(p, s)
	}
	return p
}

func WritePDF(w io.Writer, shapes []state.Shape) error {
	p := newDocument(shapes)
	if err := p.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return p.Output(w)
}

func drawShape(p *gofpdf.Fpdf, s state.Shape) {
	a, r, g, b := splitARGB(s.Color)
	p.SetDrawColor(r, g, b)
	p.SetAlpha(float64(a)/255, "Normal")
	width := s.Thickness / pxPerMM
	if width < 0.1 {
		width = 0.1
	}
	p.SetLineWidth(width)

	pts := make([]gofpdf.PointType, len(s.Points))
	for i, pt := range s.Points {
		pts[i] = gofpdf.PointType{X: pt.X / pxPerMM, Y: pt.Y / pxPerMM}
	}
	if len(pts) == 0 {
		return
	}
	min, max := s.Bounds()
	x0, y0 := min.X/pxPerMM, min.Y/pxPerMM
	x1, y1 := max.X/pxPerMM, max.Y/pxPerMM

	switch s.Kind {
	case state.KindFreehand:
		for i := 1; i < len(pts); i++ {
			p.Line(pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y)
		}
	case state.KindLine:
		last := pts[len(pts)-1]
		p.Line(pts[0].X, pts[0].Y, last.X, last.Y)
	case state.KindRectangle:
		p.Rect(x0, y0, x1-x0, y1-y0, "D")
	case state.KindEllipse:
		p.Ellipse((x0+x1)/2, (y0+y1)/2, (x1-x0)/2, (y1-y0)/2, 0, "D")
	case state.KindTriangle:
		if len(pts) >= 3 {
			p.Polygon(pts[:3], "D")
			return
		}
		p.Polygon([]gofpdf.PointType{
			{X: (x0 + x1) / 2, Y: y0},
			{X: x1, Y: y1},
			{X: x0, Y: y1},
		}, "D")
	}
}

func splitARGB(c uint32) (a, r, g, b int) {
	return int(c >> 24 & 0xff), int(c >> 16 & 0xff), int(c >> 8 & 0xff), int(c & 0xff)
}

// ToFile exports shapes to path: PDF for ".pdf", a text summary otherwise.
func ToFile(path string, shapes []state.Shape) error {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if err := newDocument(shapes).OutputFileAndClose(path); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	} else if err := writeTextFile(path, shapes); err != nil {
		return err
	}
	log.Printf("[EXPORT] Wrote %d shapes to %s", len(shapes), path)
	return nil
}
