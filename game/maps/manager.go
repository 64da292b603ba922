package maps

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/service"
)

var ErrInvalidName = errors.New("invalid map name")

var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Manager handles map template loading, caching and saving
type Manager struct {
	mapDir string
	maps   map[string]*engine.MapTemplate
	mu     sync.RWMutex
}

// NewManager creates a map manager rooted at mapDir, creating the directory if needed
func NewManager(mapDir string) (*Manager, error) {
	if err := os.MkdirAll(mapDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create map directory: %w", err)
	}

	return &Manager{
		mapDir: mapDir,
		maps:   make(map[string]*engine.MapTemplate),
	}, nil
}

// Dir returns the directory the manager reads and writes
func (m *Manager) Dir() string {
	return m.mapDir
}

// Load loads a map by name
func (m *Manager) Load(name string) (*engine.MapTemplate, error) {
	name = strings.TrimSuffix(name, ".json")
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", service.ErrMapNotFound, name)
	}

	m.mu.RLock()
	if tmpl, exists := m.maps[name]; exists {
		m.mu.RUnlock()
		return tmpl, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if tmpl, exists := m.maps[name]; exists {
		return tmpl, nil
	}

	tmpl, err := ReadFile(filepath.Join(m.mapDir, name+".json"))
	if err != nil {
		return nil, err
	}
	if tmpl.Name == "" {
		tmpl.Name = name
	}

	m.maps[name] = tmpl
	return tmpl, nil
}

// List returns information about every valid map in the directory, sorted by id.
// Files that fail to parse or validate are skipped.
func (m *Manager) List() ([]*service.MapInfo, error) {
	entries, err := os.ReadDir(m.mapDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read map directory: %w", err)
	}

	maps := []*service.MapInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		tmpl, err := m.Load(name)
		if err != nil {
			continue
		}

		maps = append(maps, &service.MapInfo{
			Filename:    entry.Name(),
			MapID:       name,
			Name:        tmpl.Name,
			Description: tmpl.Description,
			Rules:       tmpl.Rules,
			GridSize:    len(tmpl.Cells),
		})
	}

	sort.Slice(maps, func(i, j int) bool { return maps[i].MapID < maps[j].MapID })
	return maps, nil
}

// Save writes a map to disk and refreshes the cache
func (m *Manager) Save(name string, tmpl *engine.MapTemplate) error {
	if !validName.MatchString(name) {
		return &engine.ValidationError{Field: "name", Reason: "may only contain letters, digits, '_' and '-'", Err: ErrInvalidName}
	}
	if tmpl == nil {
		return &engine.ValidationError{Field: "map", Reason: "is required"}
	}
	if err := engine.ValidateGrid(tmpl.Cells, nil); err != nil {
		return err
	}

	data, err := json.MarshalIndent(tmpl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}

	path := filepath.Join(m.mapDir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write map file: %w", err)
	}

	m.mu.Lock()
	m.maps[name] = tmpl
	m.mu.Unlock()

	return nil
}

// RefreshCache drops every cached map so the next Load reads from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maps = make(map[string]*engine.MapTemplate)
}

// ReadFile parses and validates a single map file. A missing file reports
// service.ErrMapNotFound; an unnamed map takes its name from the filename.
func ReadFile(path string) (*engine.MapTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", service.ErrMapNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}

	tmpl, err := parseMap(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse map %s: %w", filepath.Base(path), err)
	}
	if tmpl.Name == "" {
		tmpl.Name = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	if err := engine.ValidateGrid(tmpl.Cells, nil); err != nil {
		return nil, err
	}

	return tmpl, nil
}

// parseMap accepts either a map object or a bare grid, which is what the
// map editor downloads.
func parseMap(data []byte) (*engine.MapTemplate, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var cells [][]engine.Cell
		if err := json.Unmarshal(trimmed, &cells); err != nil {
			return nil, err
		}
		return &engine.MapTemplate{Cells: cells}, nil
	}

	var tmpl engine.MapTemplate
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}
