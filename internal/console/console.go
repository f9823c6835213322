// Package console is a line-oriented front end for a board manager. It plays
// the part of the drawing surface: every command becomes a manager request.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"SyncBoard/internal/action"
	"SyncBoard/internal/export"
	"SyncBoard/internal/manager"
	"SyncBoard/internal/state"
)

var (
	ErrUsage          = errors.New("usage")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoSuchShape    = errors.New("no such shape")
	ErrAmbiguousShape = errors.New("ambiguous shape id")
)

// palette mirrors the drawing toolbar swatches.
var palette = map[string]uint32{
	"black":  0xFF000000,
	"red":    0xFFFF0000,
	"green":  0xFF00FF00,
	"blue":   0xFF0000FF,
	"yellow": 0xFFFFFF00,
	"white":  0xFFFFFFFF,
}

const (
	defaultColor     = 0xFF000000
	defaultThickness = 2.0
)

const helpText = `commands:
  rect|ellipse|triangle|line x1 y1 x2 y2 [color] [thickness]
  draw x y x y ...             freehand stroke
  move <id> dx dy
  color <id> <color>           name or ARGB hex such as ff0000ff
  delete <id>
  undo | redo
  list
  export <file>                .pdf or text
  help | quit
shape ids may be shortened to any unique prefix`

type Console struct {
	mgr manager.Manager
	out io.Writer
}

func New(mgr manager.Manager, out io.Writer) *Console {
	return &Console{mgr: mgr, out: out}
}

// Run executes one command per line of in until EOF, "quit" or ctx is done.
// Command errors are reported to out and do not stop the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	c.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line != "" {
			if err := c.Execute(ctx, line); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
		c.prompt()
	}
	return scanner.Err()
}

func (c *Console) prompt() {
	fmt.Fprintf(c.out, "%s> ", c.mgr.UserID())
}

// Execute runs a single command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "rect", "rectangle", "ellipse", "triangle", "line":
		return c.createFigure(ctx, cmd, args)
	case "draw":
		return c.createStroke(ctx, args)
	case "move":
		return c.move(ctx, args)
	case "color":
		return c.recolor(ctx, args)
	case "delete", "rm":
		if len(args) != 1 {
			return fmt.Errorf("%w: delete <id>", ErrUsage)
		}
		s, err := c.resolve(args[0])
		if err != nil {
			return err
		}
		_, err = c.mgr.RequestDelete(ctx, s.ID)
		return err
	case "undo":
		return c.mgr.RequestUndo(ctx)
	case "redo":
		return c.mgr.RequestRedo(ctx)
	case "list", "ls":
		c.list()
		return nil
	case "export":
		if len(args) != 1 {
			return fmt.Errorf("%w: export <file>", ErrUsage)
		}
		return export.ToFile(args[0], c.mgr.CanvasState().VisibleShapes())
	case "help", "?":
		fmt.Fprintln(c.out, helpText)
		return nil
	}
	return fmt.Errorf("%w %q, try help", ErrUnknownCommand, cmd)
}

func (c *Console) createFigure(ctx context.Context, cmd string, args []string) error {
	if len(args) < 4 || len(args) > 6 {
		return fmt.Errorf("%w: %s x1 y1 x2 y2 [color] [thickness]", ErrUsage, cmd)
	}
	coords, err := parseFloats(args[:4])
	if err != nil {
		return err
	}
	shape := state.Shape{
		Kind:      figureKind(cmd),
		Points:    []state.Point{{X: coords[0], Y: coords[1]}, {X: coords[2], Y: coords[3]}},
		Color:     defaultColor,
		Thickness: defaultThickness,
	}
	if len(args) > 4 {
		if shape.Color, err = ParseColor(args[4]); err != nil {
			return err
		}
	}
	if len(args) > 5 {
		if shape.Thickness, err = strconv.ParseFloat(args[5], 64); err != nil {
			return fmt.Errorf("%w: thickness %q", ErrUsage, args[5])
		}
	}
	a, err := c.mgr.RequestCreate(ctx, shape)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "requested %s %s\n", shape.Kind, a.ShapeID)
	return nil
}

func figureKind(cmd string) state.ShapeKind {
	switch cmd {
	case "ellipse":
		return state.KindEllipse
	case "triangle":
		return state.KindTriangle
	case "line":
		return state.KindLine
	}
	return state.KindRectangle
}

func (c *Console) createStroke(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args)%2 != 0 {
		return fmt.Errorf("%w: draw x y [x y ...]", ErrUsage)
	}
	coords, err := parseFloats(args)
	if err != nil {
		return err
	}
	pts := make([]state.Point, 0, len(coords)/2)
	for i := 0; i < len(coords); i += 2 {
		pts = append(pts, state.Point{X: coords[i], Y: coords[i+1]})
	}
	a, err := c.mgr.RequestCreate(ctx, state.Shape{
		Kind:      state.KindFreehand,
		Points:    pts,
		Color:     defaultColor,
		Thickness: defaultThickness,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "requested freehand %s\n", a.ShapeID)
	return nil
}

func (c *Console) move(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: move <id> dx dy", ErrUsage)
	}
	s, err := c.resolve(args[0])
	if err != nil {
		return err
	}
	d, err := parseFloats(args[1:])
	if err != nil {
		return err
	}
	for i := range s.Points {
		s.Points[i].X += d[0]
		s.Points[i].Y += d[1]
	}
	_, err = c.mgr.RequestModify(ctx, s)
	return err
}

func (c *Console) recolor(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: color <id> <color>", ErrUsage)
	}
	s, err := c.resolve(args[0])
	if err != nil {
		return err
	}
	if s.Color, err = ParseColor(args[1]); err != nil {
		return err
	}
	_, err = c.mgr.RequestModify(ctx, s)
	return err
}

func (c *Console) list() {
	shapes := c.mgr.CanvasState().VisibleShapes()
	if len(shapes) == 0 {
		fmt.Fprintln(c.out, "(empty canvas)")
	}
	for _, s := range shapes {
		min, max := s.Bounds()
		fmt.Fprintf(c.out, "%s  %-9s #%08X  %.1f  (%.0f,%.0f)-(%.0f,%.0f)  by %s\n",
			s.ID, s.Kind, s.Color, s.Thickness, min.X, min.Y, max.X, max.Y, s.LastUpdatedBy)
	}
	fmt.Fprintf(c.out, "undo:%v redo:%v\n", c.mgr.CanUndo(), c.mgr.CanRedo())
}

// resolve finds the visible shape whose id is, or starts with, ref.
func (c *Console) resolve(ref string) (state.Shape, error) {
	var found []state.Shape
	for _, s := range c.mgr.CanvasState().VisibleShapes() {
		if string(s.ID) == ref {
			return s, nil
		}
		if strings.HasPrefix(string(s.ID), ref) {
			found = append(found, s)
		}
	}
	switch len(found) {
	case 0:
		return state.Shape{}, fmt.Errorf("%w: %s", ErrNoSuchShape, ref)
	case 1:
		return found[0], nil
	}
	return state.Shape{}, fmt.Errorf("%w: %s matches %d shapes", ErrAmbiguousShape, ref, len(found))
}

// ParseColor accepts a palette name or an ARGB hex value. Six hex digits are
// taken as opaque RGB.
func ParseColor(s string) (uint32, error) {
	if c, ok := palette[strings.ToLower(s)]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "#"), "0x")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || (len(hex) != 6 && len(hex) != 8) {
		return 0, fmt.Errorf("%w: color %q", ErrUsage, s)
	}
	if len(hex) == 6 {
		v |= 0xFF000000
	}
	return uint32(v), nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrUsage, a)
		}
		out[i] = v
	}
	return out, nil
}

// Watch prints a note whenever the manager rejects one of this user's actions.
func Watch(mgr manager.Manager, out io.Writer) {
	mgr.SetOnReject(func(a action.Action, err error) {
		log.Printf("[CONSOLE] %s rejected: %v", a, err)
		fmt.Fprintf(out, "\nrejected %s on %s: %v\n", a.Type, a.ShapeID, err)
	})
}
