package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"SyncBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleShapes() []state.Shape {
	pts := []state.Point{{X: 30, Y: 30}, {X: 120, Y: 90}}
	return []state.Shape{
		{ID: "F1", Kind: state.KindFreehand, Points: []state.Point{{X: 10, Y: 10}, {X: 20, Y: 25}, {X: 40, Y: 15}}, Color: 0xFF000000, Thickness: 2, CreatedBy: "alice", LastUpdatedBy: "alice"},
		{ID: "R1", Kind: state.KindRectangle, Points: pts, Color: 0xFFFF0000, Thickness: 3, CreatedBy: "alice", LastUpdatedBy: "bob"},
		{ID: "E1", Kind: state.KindEllipse, Points: pts, Color: 0x800000FF, Thickness: 1},
		{ID: "T1", Kind: state.KindTriangle, Points: pts, Color: 0xFF00FF00, Thickness: 1},
		{ID: "T2", Kind: state.KindTriangle, Points: []state.Point{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 25, Y: 40}}, Color: 0xFF00FF00},
		{ID: "L1", Kind: state.KindLine, Points: pts, Color: 0xFF123456, Thickness: 5},
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, sampleShapes()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFEmptyCanvas(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, nil))
	assert.NotZero(t, buf.Len())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleShapes()))
	out := buf.String()
	assert.Contains(t, out, "Total shapes: 6")
	assert.Contains(t, out, "Shape 2: rectangle R1")
	assert.Contains(t, out, "Color: #FFFF0000")
	assert.Contains(t, out, "Created by: alice, last updated by: bob")
	assert.Contains(t, out, "Bounds: (30.00, 30.00) - (120.00, 90.00)")
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()

	pdfPath := filepath.Join(dir, "board.PDF")
	require.NoError(t, ToFile(pdfPath, sampleShapes()))
	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	txtPath := filepath.Join(dir, "board.txt")
	require.NoError(t, ToFile(txtPath, sampleShapes()))
	data, err = os.ReadFile(txtPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SyncBoard Export")

	assert.Error(t, ToFile(filepath.Join(dir, "missing", "board.txt"), nil))
}

func TestSplitARGB(t *testing.T) {
	a, r, g, b := splitARGB(0x80112233)
	assert.Equal(t, []int{0x80, 0x11, 0x22, 0x33}, []int{a, r, g, b})
}
