// Package manifest handles tally.toml configuration.
package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "tally.toml"

// Manifest represents a tally.toml configuration.
type Manifest struct {
	REPL   REPLConfig   `toml:"repl" json:"repl"`
	Corpus CorpusConfig `toml:"corpus" json:"corpus"`
	Server ServerConfig `toml:"server" json:"server"`
	Log    LogConfig    `toml:"log" json:"log"`
	VM     VMConfig     `toml:"vm" json:"vm"`

	// Dir is the directory containing the tally.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// REPLConfig configures the interactive console.
type REPLConfig struct {
	Prompt string `toml:"prompt" json:"prompt"`
	Exit   string `toml:"exit" json:"exit"`
	Banner bool   `toml:"banner" json:"banner"`
}

// CorpusConfig configures `tally test`.
type CorpusConfig struct {
	Files []string `toml:"files" json:"files"`
	Input int64    `toml:"input" json:"input"` // answer to every variable prompt
}

// ServerConfig configures `tally serve`.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`

	// Durations are written as strings such as "10m" or "1h30m".
	SessionTTL time.Duration `toml:"session_ttl" json:"session_ttl"` // idle sessions are destroyed
	ProgramTTL time.Duration `toml:"program_ttl" json:"program_ttl"` // unused compiled programs are dropped
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// VMConfig configures every VM the CLI creates.
type VMConfig struct {
	Trace bool `toml:"trace" json:"trace"`
}

// Default returns the configuration used when no tally.toml exists.
func Default() *Manifest {
	return &Manifest{
		REPL: REPLConfig{
			Prompt: ">>> ",
			Exit:   "exit",
			Banner: true,
		},
		Corpus: CorpusConfig{
			Files: []string{},
			Input: 42,
		},
		Server: ServerConfig{
			Addr:       "localhost:8710",
			SessionTTL: time.Hour,
			ProgramTTL: 30 * time.Minute,
		},
	}
}

// Load parses a tally.toml file from the given directory. Keys missing
// from the file keep their Default values.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses and validates the configuration file at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a tally.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CorpusPaths returns absolute paths for the configured corpus files.
func (m *Manifest) CorpusPaths() []string {
	var paths []string
	for _, f := range m.Corpus.Files {
		if filepath.IsAbs(f) {
			paths = append(paths, f)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, f))
	}
	return paths
}

// LogPath returns the log file for commonlog.Configure, or nil for stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}

// Encode writes the manifest as TOML.
func (m *Manifest) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(m)
}
