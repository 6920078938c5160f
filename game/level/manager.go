package level

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/sokoban/game/engine"
)

//go:embed stages/*.txt
var stagesFS embed.FS

var (
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")
)

// Level is the retained source text of one stage
type Level struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Source   string `json:"source"`
}

// Info summarises a level for listings
type Info struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Blocks   int    `json:"blocks"`
	Goals    int    `json:"goals"`
}

// Manager handles level loading and caching
type Manager struct {
	dir    string
	fsys   fs.FS
	levels map[string]*Level
	mu     sync.RWMutex
}

// NewManager creates a manager over a level directory.
// An empty dir selects the levels embedded in the binary.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		return NewEmbeddedManager(), nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("level directory does not exist: %s", dir)
		}
		return nil, fmt.Errorf("failed to stat level directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("level path is not a directory: %s", dir)
	}

	return NewFSManager(dir, os.DirFS(dir)), nil
}

// NewEmbeddedManager serves the default stage set
func NewEmbeddedManager() *Manager {
	sub, err := fs.Sub(stagesFS, "stages")
	if err != nil {
		// the embed pattern guarantees the directory exists
		panic(err)
	}
	return NewFSManager("embedded", sub)
}

// NewFSManager serves levels from the root of any filesystem
func NewFSManager(name string, fsys fs.FS) *Manager {
	return &Manager{
		dir:    name,
		fsys:   fsys,
		levels: make(map[string]*Level),
	}
}

// Dir returns the directory the manager reads from
func (m *Manager) Dir() string {
	return m.dir
}

// LoadLevel loads a level by ID. The ID is the filename, with or without
// its .txt extension.
func (m *Manager) LoadLevel(id string) (*Level, error) {
	m.mu.RLock()
	if lvl, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return lvl, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if lvl, exists := m.levels[id]; exists {
		return lvl, nil
	}

	filename, err := m.resolve(id)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(m.fsys, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read level file %s: %w", filename, err)
	}

	source := string(data)
	if _, err := engine.Parse(source); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidLevel, filename, err)
	}

	lvl := &Level{
		ID:       levelID(filename),
		Name:     levelName(filename),
		Filename: filename,
		Source:   source,
	}
	m.levels[id] = lvl
	return lvl, nil
}

// IDs returns every level file in directory listing order
func (m *Manager) IDs() ([]string, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !isLevelFile(entry) {
			continue
		}
		ids = append(ids, levelID(entry.Name()))
	}
	return ids, nil
}

// ListLevels returns information about all loadable levels.
// Files that fail to parse are skipped.
func (m *Manager) ListLevels() ([]*Info, error) {
	ids, err := m.IDs()
	if err != nil {
		return nil, err
	}

	levels := make([]*Info, 0, len(ids))
	for _, id := range ids {
		lvl, err := m.LoadLevel(id)
		if err != nil {
			continue
		}
		levels = append(levels, lvl.Info())
	}
	return levels, nil
}

// LoadAll loads every level in listing order and stops at the first failure
func (m *Manager) LoadAll() ([]*Level, error) {
	ids, err := m.IDs()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no level files in %s", ErrLevelNotFound, m.dir)
	}

	levels := make([]*Level, 0, len(ids))
	for _, id := range ids {
		lvl, err := m.LoadLevel(id)
		if err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

// First returns the first level in listing order
func (m *Manager) First() (*Level, error) {
	ids, err := m.IDs()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no level files in %s", ErrLevelNotFound, m.dir)
	}
	return m.LoadLevel(ids[0])
}

// RefreshCache drops all cached levels so they are re-read on next use
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = make(map[string]*Level)
}

// NewEngine creates a fresh engine for the level
func (l *Level) NewEngine() (*engine.GameEngine, error) {
	return engine.NewEngine(l.ID, l.Name, l.Source)
}

// Info builds the listing summary for the level
func (l *Level) Info() *Info {
	info := &Info{ID: l.ID, Name: l.Name, Filename: l.Filename}
	if g, err := engine.Parse(l.Source); err == nil {
		info.Blocks = g.Count(engine.Block) + g.Count(engine.BlockOnGoal)
		info.Goals = engine.CountGoals(g)
	}
	return info
}

func (m *Manager) resolve(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrLevelNotFound, id)
	}

	for _, candidate := range []string{id, id + ".txt"} {
		info, err := fs.Stat(m.fsys, candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrLevelNotFound, id)
}

func isLevelFile(entry fs.DirEntry) bool {
	return entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".")
}

func levelID(filename string) string {
	return strings.TrimSuffix(filename, ".txt")
}

// levelName turns "02-two-crates.txt" into "two crates"
func levelName(filename string) string {
	name := levelID(filename)
	trimmed := strings.TrimLeft(name, "0123456789")
	if trimmed != name {
		trimmed = strings.TrimLeft(trimmed, "-_ ")
	}
	if trimmed == "" {
		return name
	}
	return strings.NewReplacer("-", " ", "_", " ").Replace(trimmed)
}
