package render

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/leonelquinteros/gotext"
	"golang.org/x/term"

	"github.com/wricardo/mcp-training/sokoban/game/engine"
)

// ClearScreen erases the terminal and homes the cursor
const ClearScreen = "\x1b[2J\x1b[H"

// UI strings; these are also the message IDs of the locale catalogues
const (
	MsgPrompt     = "a: left s: right w: up z: down r: reset. Input command?"
	MsgStageClear = "STAGE CLEAR!"
	MsgInputError = "Input error: invalid input."
	MsgStage      = "Stage %d/%d: %s"
	MsgAllClear   = "ALL STAGES CLEAR!"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

//go:embed locales/*.po
var localesFS embed.FS

// Options controls how frames are drawn
type Options struct {
	// Color draws glyphs with ANSI styles
	Color bool
	// Language selects a locale catalogue; "" and "en" use the built-in strings
	Language string
	// Header adds a stage title line above the grid
	Header bool
}

// Frame is everything drawn for one turn
type Frame struct {
	Grid *engine.Grid
	// Status is an optional line shown under the grid, e.g. the last input error
	Status string
	Solved bool
	// Stage and Stages number the level within a campaign; Stages 0 means unknown
	Stage  int
	Stages int
	Name   string
}

// Renderer draws frames to a terminal
type Renderer struct {
	out     io.Writer
	opts    Options
	catalog *gotext.Po

	colorWall   color.Style
	colorGoal   color.Style
	colorBlock  color.Style
	colorOnGoal color.Style
	colorPlayer color.Style
	colorStatus color.Style
	colorClear  color.Style
}

// New creates a renderer writing to out
func New(out io.Writer, opts Options) (*Renderer, error) {
	r := &Renderer{out: out, opts: opts}

	if opts.Language != "" && opts.Language != "en" {
		catalog, err := loadCatalog(opts.Language)
		if err != nil {
			return nil, err
		}
		r.catalog = catalog
	}

	r.colorWall = color.Style{color.FgGray}
	r.colorGoal = color.Style{color.FgYellow}
	r.colorBlock = color.Style{color.FgMagenta, color.OpBold}
	r.colorOnGoal = color.Style{color.FgGreen, color.OpBold}
	r.colorPlayer = color.Style{color.FgCyan, color.OpBold}
	r.colorStatus = color.Style{color.FgRed, color.OpBold}
	r.colorClear = color.Style{color.FgGreen, color.OpBold}
	return r, nil
}

// Languages lists the locales with an embedded catalogue, plus "en"
func Languages() []string {
	langs := []string{"en"}
	entries, err := localesFS.ReadDir("locales")
	if err != nil {
		return langs
	}
	for _, entry := range entries {
		langs = append(langs, strings.TrimSuffix(entry.Name(), ".po"))
	}
	return langs
}

func loadCatalog(lang string) (*gotext.Po, error) {
	data, err := localesFS.ReadFile("locales/" + lang + ".po")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	po := gotext.NewPo()
	po.Parse(data)
	return po, nil
}

// T translates a message ID, formatting vars when given
func (r *Renderer) T(msg string, vars ...interface{}) string {
	if r.catalog != nil {
		return r.catalog.Get(msg, vars...)
	}
	if len(vars) > 0 {
		return fmt.Sprintf(msg, vars...)
	}
	return msg
}

// Draw writes a whole frame: clear, grid rows, status line, then either the
// prompt or the stage clear message.
func (r *Renderer) Draw(f Frame) error {
	w := bufio.NewWriter(r.out)

	w.WriteString(ClearScreen)
	if r.opts.Header && f.Name != "" {
		if f.Stages > 0 {
			fmt.Fprintln(w, r.T(MsgStage, f.Stage, f.Stages, f.Name))
		} else {
			fmt.Fprintln(w, f.Name)
		}
	}

	if f.Grid != nil {
		tiles := f.Grid.Tiles()
		for y := 0; y < engine.Height; y++ {
			for x := 0; x < engine.Width; x++ {
				w.WriteString(r.glyph(tiles[y*engine.Width+x]))
			}
			w.WriteByte('\n')
		}
	}

	if f.Status != "" {
		fmt.Fprintln(w, r.style(r.colorStatus, f.Status))
	}

	if f.Solved {
		fmt.Fprintln(w, r.style(r.colorClear, r.T(MsgStageClear)))
	} else {
		fmt.Fprintln(w, r.T(MsgPrompt))
	}

	return w.Flush()
}

// InputError returns the status line reporting an unrecognised command
func (r *Renderer) InputError() string {
	return r.T(MsgInputError)
}

// AllClear writes the final campaign message
func (r *Renderer) AllClear() error {
	_, err := fmt.Fprintln(r.out, r.style(r.colorClear, r.T(MsgAllClear)))
	return err
}

func (r *Renderer) glyph(t engine.Tile) string {
	s := string(t.Glyph())
	switch t {
	case engine.Wall:
		return r.style(r.colorWall, s)
	case engine.Goal:
		return r.style(r.colorGoal, s)
	case engine.Block:
		return r.style(r.colorBlock, s)
	case engine.BlockOnGoal:
		return r.style(r.colorOnGoal, s)
	case engine.Player, engine.PlayerOnGoal:
		return r.style(r.colorPlayer, s)
	default:
		return s
	}
}

func (r *Renderer) style(s color.Style, text string) string {
	if !r.opts.Color {
		return text
	}
	return s.Sprint(text)
}

// IsTerminal reports whether f is attached to a terminal. Colour defaults to
// on only in that case.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
