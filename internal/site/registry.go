// Package site maintains the route table that maps request paths to static
// files on disk.
package site

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Route is a single URL path to file mapping.
type Route struct {
	URLPath      string
	FileLocation string
}

// Registry maps URL paths (with a leading "/") to filesystem paths.
// It is safe for concurrent use, although it is expected to be populated once
// at startup and only read while serving.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		routes: make(map[string]string),
	}
}

// Register maps urlPath to the absolute form of fileLocation if it currently
// exists as a regular file. It reports whether the mapping was stored. A later
// registration for the same urlPath replaces the earlier one.
func (r *Registry) Register(urlPath, fileLocation string) bool {
	info, err := os.Stat(fileLocation)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	fileLocation, err = filepath.Abs(fileLocation)
	if err != nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[urlPath] = fileLocation
	return true
}

// Lookup returns the file mapped to urlPath and whether a mapping exists.
func (r *Registry) Lookup(urlPath string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	location, ok := r.routes[urlPath]
	return location, ok
}

// RegisterDir registers every regular file directly inside dir under
// "/" + its file name. Subdirectories are skipped and symlinks are followed.
// It returns the number of files registered.
func (r *Registry) RegisterDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read directory %s: %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if r.Register("/"+entry.Name(), filepath.Join(dir, entry.Name())) {
			count++
		}
	}
	return count, nil
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Routes returns a snapshot of all routes sorted by URL path.
func (r *Registry) Routes() []Route {
	r.mu.RLock()
	routes := make([]Route, 0, len(r.routes))
	for urlPath, location := range r.routes {
		routes = append(routes, Route{URLPath: urlPath, FileLocation: location})
	}
	r.mu.RUnlock()

	sort.Slice(routes, func(i, j int) bool {
		return routes[i].URLPath < routes[j].URLPath
	})
	return routes
}
