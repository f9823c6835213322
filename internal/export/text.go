package export

import (
	"fmt"
	"io"
	"os"

	"SyncBoard/internal/state"
)

// WriteText writes a plain summary of every shape.
func WriteText(w io.Writer, shapes []state.Shape) error {
	fmt.Fprintf(w, "SyncBoard Export\n")
	fmt.Fprintf(w, "================\n\n")
	fmt.Fprintf(w, "Total shapes: %d\n\n", len(shapes))

	for i, s := range shapes {
		fmt.Fprintf(w, "Shape %d: %s %s\n", i+1, s.Kind, s.ID)
		fmt.Fprintf(w, "  Points: %d\n", len(s.Points))
		fmt.Fprintf(w, "  Color: #%08X\n", s.Color)
		fmt.Fprintf(w, "  Thickness: %.1f\n", s.Thickness)
		fmt.Fprintf(w, "  Created by: %s, last updated by: %s\n", s.CreatedBy, s.LastUpdatedBy)
		if len(s.Points) > 0 {
			min, max := s.Bounds()
			fmt.Fprintf(w, "  Bounds: (%.2f, %.2f) - (%.2f, %.2f)\n", min.X, min.Y, max.X, max.Y)
		}
		if _, err := fmt.Fprintf(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeTextFile(path string, shapes []state.Shape) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteText(f, shapes); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
