// Command tiles plays the merge game in a terminal. Each input line is one
// move: arrow names, wasd or hjkl. "n" starts over and "q" quits.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gastos/internal/board"
	applog "gastos/internal/log"
)

func main() {
	size := flag.Int("size", board.DefaultSize, "board size")
	bestFile := flag.String("best-file", defaultBestFile(), "file that keeps the best score")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	lvl, err := applog.ParseLevel(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	applog.SetDefault(applog.New(applog.Config{Level: lvl, Component: applog.ComponentGame, Output: os.Stderr}))

	if *size < 2 {
		fmt.Fprintln(os.Stderr, "size must be at least 2")
		os.Exit(2)
	}

	engine := board.New(*size, nil)
	engine.Reset()
	g := &game{
		engine: engine,
		best:   &bestScore{path: *bestFile},
		out:    os.Stdout,
	}
	if err := g.run(os.Stdin); err != nil {
		slog.Error("tiles exited with error", applog.FieldError, err)
		os.Exit(1)
	}
}

func defaultBestFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tiles-best"
	}
	return filepath.Join(dir, "gastos", "tiles-best")
}

// parseInput maps one input line to a command. Unknown input is ignored.
func parseInput(line string) (cmd string, d board.Direction, ok bool) {
	switch s := strings.ToLower(strings.TrimSpace(line)); s {
	case "q", "quit", "exit":
		return "quit", 0, true
	case "n", "new":
		return "new", 0, true
	case "a", "h":
		return "move", board.Left, true
	case "d", "l":
		return "move", board.Right, true
	case "w", "k":
		return "move", board.Up, true
	case "s", "j":
		return "move", board.Down, true
	default:
		if d, ok := board.ParseKey(s); ok {
			return "move", d, true
		}
	}
	return "", 0, false
}

type game struct {
	engine *board.Engine
	best   *bestScore
	out    io.Writer
}

// run reads moves from in until it ends or the player quits.
func (g *game) run(in io.Reader) error {
	best, err := g.best.Load()
	if err != nil {
		slog.Warn("Could not read best score, starting from zero", applog.FieldError, err)
	}

	g.render(best)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		cmd, d, ok := parseInput(sc.Text())
		if !ok {
			continue
		}
		switch cmd {
		case "quit":
			return nil
		case "new":
			g.engine.Reset()
		case "move":
			if g.engine.Over() {
				continue
			}
			if res := g.engine.Move(d); !res.Moved {
				continue
			}
		}

		if score := g.engine.Score(); score > best {
			best = score
			if err := g.best.Save(best); err != nil {
				slog.Warn("Could not save best score", applog.FieldError, err)
			}
		}
		g.render(best)
		if g.engine.Over() {
			fmt.Fprintln(g.out, "Game over. n for a new game, q to quit.")
		}
	}
	return sc.Err()
}

func (g *game) render(best int) {
	grid := g.engine.Grid()
	width := 1
	for _, row := range grid {
		for _, v := range row {
			if n := len(strconv.Itoa(v)); n > width {
				width = n
			}
		}
	}

	fmt.Fprintf(g.out, "\nScore %d   Best %d\n", g.engine.Score(), best)
	for _, row := range grid {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == 0 {
				cells[i] = fmt.Sprintf("%*s", width, ".")
				continue
			}
			cells[i] = fmt.Sprintf("%*d", width, v)
		}
		fmt.Fprintln(g.out, strings.Join(cells, " "))
	}
}

// bestScore persists the best score as a decimal number in a single file.
type bestScore struct {
	path string
}

func (b *bestScore) Load() (int, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("corrupt best score file %s", b.path)
	}
	return n, nil
}

func (b *bestScore) Save(n int) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(n)+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}
