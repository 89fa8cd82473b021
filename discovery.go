// FILE: lixenwraith/sectcfg/discovery.go
package sectcfg

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions controls where DiscoverFile looks for a config file
type FileDiscoveryOptions struct {
	Name       string   // file base name, extension excluded
	Extensions []string // tried in order per directory
	Paths      []string // searched before the current and XDG directories
	EnvVar     string   // holds an explicit path
	CLIFlag    string   // e.g. "--config"; both "--config x" and "--config=x" forms

	UseXDG        bool
	UseCurrentDir bool
}

// DefaultDiscoveryOptions covers every format the loaders read
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".ini", ".conf", ".yaml", ".yml", ".toml"},
		EnvVar:        strings.ToUpper(strings.ReplaceAll(appName, "-", "_")) + "_CONFIG",
		CLIFlag:       "--config",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// WithFileDiscovery appends the discovered config file, if any, to the engine files
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if path, ok := DiscoverFile(opts, b.args); ok {
		b.files = append(b.files, path)
	}
	return b
}

// DiscoverFile returns the first config file named by the CLI flag in args,
// the environment variable, or a search directory, in that order.
// Finding nothing is not an error.
func DiscoverFile(opts FileDiscoveryOptions, args []string) (string, bool) {
	if path, ok := flagValue(args, opts.CLIFlag); ok {
		return path, true
	}
	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			return path, true
		}
	}
	for _, dir := range searchDirs(opts) {
		for _, ext := range opts.Extensions {
			path := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}

func flagValue(args []string, flag string) (string, bool) {
	if flag == "" {
		return "", false
	}
	for i, arg := range args {
		switch {
		case arg == flag && i+1 < len(args):
			return args[i+1], true
		case strings.HasPrefix(arg, flag+"="):
			return arg[len(flag)+1:], true
		}
	}
	return "", false
}

func searchDirs(opts FileDiscoveryOptions) []string {
	dirs := append([]string(nil), opts.Paths...)
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if opts.UseXDG {
		dirs = append(dirs, xdgConfigDirs(opts.Name)...)
	}
	return dirs
}

// xdgConfigDirs follows the XDG base directory layout, user dir first
func xdgConfigDirs(appName string) []string {
	var dirs []string
	switch home := os.Getenv("XDG_CONFIG_HOME"); {
	case home != "":
		dirs = append(dirs, filepath.Join(home, appName))
	case os.Getenv("HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("HOME"), ".config", appName))
	}

	system := os.Getenv("XDG_CONFIG_DIRS")
	if system == "" {
		system = "/etc/xdg" + string(filepath.ListSeparator) + "/etc"
	}
	for _, dir := range filepath.SplitList(system) {
		dirs = append(dirs, filepath.Join(dir, appName))
	}
	return dirs
}
