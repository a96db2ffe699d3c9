package store

import (
	"fmt"
	"path/filepath"
	"time"

	"trooper/internal/errors"
	"trooper/internal/log"

	"gopkg.in/yaml.v3"
)

// Mode says what a paste does with the register entries.
type Mode int

const (
	None Mode = iota
	Yanked
	Cut
)

var modeNames = map[Mode]string{None: "none", Yanked: "yank", Cut: "cut"}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names String produces.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return None, fmt.Errorf("unknown register mode %q", s)
}

func (m Mode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseMode(value.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Register is the pending copy/cut set.
type Register struct {
	Mode    Mode
	Entries []string
}

// Empty reports whether a paste would do nothing.
func (r Register) Empty() bool {
	return r.Mode == None || len(r.Entries) == 0
}

type registerFile struct {
	Version   int       `yaml:"version"`
	Mode      Mode      `yaml:"mode"`
	Entries   []string  `yaml:"entries"`
	Writer    string    `yaml:"writer,omitempty"`
	WrittenAt time.Time `yaml:"written_at,omitempty"`
}

// ReadRegister loads the register from disk. A missing file is an empty register.
func (s *Store) ReadRegister() (Register, error) {
	path := s.path(RegisterFile)
	data, err := readFile(path)
	if err != nil {
		return Register{}, err
	}
	if len(data) == 0 {
		return Register{Mode: None, Entries: []string{}}, nil
	}

	var f registerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Register{}, errors.NewStoreError("corrupt register file", path, errors.StoreReadFailed, err)
	}
	if f.Version > schemaVersion {
		return Register{}, errors.NewStoreError(fmt.Sprintf("unsupported register version %d", f.Version), path, errors.StoreReadFailed, nil)
	}

	reg := Register{Mode: f.Mode, Entries: f.Entries}
	if reg.Entries == nil || reg.Mode == None {
		reg.Entries = []string{}
	}
	return reg, nil
}

// WriteRegister atomically replaces the register. Entries must be absolute
// paths; duplicates are dropped keeping first occurrence order. Mode None
// or an empty entry list clears the register.
func (s *Store) WriteRegister(mode Mode, entries []string) error {
	path := s.path(RegisterFile)
	if _, ok := modeNames[mode]; !ok {
		return errors.NewStoreError(fmt.Sprintf("invalid register mode %d", int(mode)), path, errors.StoreWriteFailed, nil)
	}

	clean := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !filepath.IsAbs(e) {
			return errors.NewStoreError("register entries must be absolute paths", e, errors.StoreWriteFailed, nil)
		}
		e = filepath.Clean(e)
		if !seen[e] {
			seen[e] = true
			clean = append(clean, e)
		}
	}
	if mode == None || len(clean) == 0 {
		mode, clean = None, []string{}
	}

	data, err := yaml.Marshal(registerFile{
		Version:   schemaVersion,
		Mode:      mode,
		Entries:   clean,
		Writer:    s.id,
		WrittenAt: time.Now().UTC(),
	})
	if err != nil {
		return errors.NewStoreError("cannot encode register", path, errors.StoreWriteFailed, err)
	}
	if err := atomicWrite(path, data); err != nil {
		return err
	}

	log.LogWithFields(log.F("mode", mode.String()), log.F("entries", len(clean)), log.F("writer", s.id)).Debug("register written")
	return nil
}

// ClearRegister resets the register to None.
func (s *Store) ClearRegister() error {
	return s.WriteRegister(None, nil)
}
