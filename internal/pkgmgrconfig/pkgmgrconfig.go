// Package pkgmgrconfig reads and writes the package manager's own INI
// configuration file living inside a resource directory (reapack.ini and
// its equivalents). It is deliberately separate from internal/config,
// which governs this CLI's own environment-derived settings.
package pkgmgrconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-ini/ini"

	"golang.org/x/text/encoding"
)

// SupportedConfigVersion is the general.version value this module writes
// after migrating an older config.
const SupportedConfigVersion = 4

// AutoInstallPref mirrors the remotes' auto_install tri-state encoding.
type AutoInstallPref int

const (
	AutoInstallDisabled         AutoInstallPref = 0
	AutoInstallEnabled          AutoInstallPref = 1
	AutoInstallUseGlobalDefault AutoInstallPref = 2
)

// Remote is one entry in the [remotes] section.
type Remote struct {
	Name        string
	URL         string
	Enabled     bool
	AutoInstall AutoInstallPref
}

// Config is a parsed package-manager INI file, plus enough of its origin
// to round-trip a rewrite: the encoding it was read with and the
// underlying *ini.File so that sections this module doesn't understand
// are preserved untouched.
type Config struct {
	Version int
	Remotes []Remote

	file *ini.File
	enc  encoding.Encoding
}

const (
	generalSection = "general"
	remotesSection = "remotes"
)

// Load reads and parses path, decoding its bytes with enc (nil means UTF-8,
// the non-Windows default; see DetectSystemEncoding for the Windows case).
// Migration to SupportedConfigVersion happens automatically when the read
// version is <= 3; migrated reports whether that happened.
func Load(path string, enc encoding.Encoding) (cfg *Config, migrated bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read config %s: %w", path, err)
	}

	decoded := raw
	if enc != nil {
		decoded, err = enc.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, false, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	// The external tool never quotes or escapes values; ask the ini
	// library to leave them alone rather than interpreting backslashes.
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true, IgnoreContinuation: true}, decoded)
	if err != nil {
		return nil, false, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg = &Config{file: file, enc: enc}
	cfg.Version = file.Section(generalSection).Key("version").MustInt(0)
	cfg.Remotes = readRemotes(file.Section(remotesSection))

	if cfg.Version <= 3 {
		for _, d := range DefaultRemotes {
			cfg.AddRemote(d)
		}
		cfg.Version = SupportedConfigVersion
		migrated = true
	}

	return cfg, migrated, nil
}

func readRemotes(sec *ini.Section) []Remote {
	size, _ := strconv.Atoi(sec.Key("size").String())
	remotes := make([]Remote, 0, size)
	for i := 0; i < size; i++ {
		key := sec.Key(fmt.Sprintf("remote%d", i))
		if key == nil {
			continue
		}
		parts := strings.SplitN(key.String(), "|", 4)
		if len(parts) != 4 {
			continue
		}
		enabled := parts[2] == "1"
		autoInstall, _ := strconv.Atoi(parts[3])
		remotes = append(remotes, Remote{
			Name: parts[0], URL: parts[1], Enabled: enabled,
			AutoInstall: AutoInstallPref(autoInstall),
		})
	}
	return remotes
}

// AddRemote upserts r by name, preserving the position of an existing
// entry and appending new ones at the end.
func (c *Config) AddRemote(r Remote) {
	for i, existing := range c.Remotes {
		if existing.Name == r.Name {
			c.Remotes[i] = r
			return
		}
	}
	c.Remotes = append(c.Remotes, r)
}

// Save rewrites the [general] and [remotes] sections and writes the
// result back to path, re-encoded with the same encoding Load used,
// leaving every other section untouched.
func (c *Config) Save(path string) error {
	file := c.file
	if file == nil {
		file = ini.Empty()
	}

	file.Section(generalSection).Key("version").SetValue(strconv.Itoa(c.Version))

	file.DeleteSection(remotesSection)
	sec, err := file.NewSection(remotesSection)
	if err != nil {
		return fmt.Errorf("rebuild remotes section: %w", err)
	}
	if _, err := sec.NewKey("size", strconv.Itoa(len(c.Remotes))); err != nil {
		return err
	}
	for i, r := range c.Remotes {
		line := fmt.Sprintf("%s|%s|%d|%d", r.Name, r.URL, boolToInt(r.Enabled), int(r.AutoInstall))
		if _, err := sec.NewKey(fmt.Sprintf("remote%d", i), line); err != nil {
			return err
		}
	}

	var buf strings.Builder
	if _, err := file.WriteTo(&buf); err != nil {
		return fmt.Errorf("render config: %w", err)
	}

	out := []byte(buf.String())
	if c.enc != nil {
		out, err = c.enc.NewEncoder().Bytes(out)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DefaultRemotes is the hard-coded set of remotes restored on migration
// from a config version <= 3.
var DefaultRemotes = []Remote{
	{Name: "ReaTeam Extensions", URL: "https://github.com/ReaTeam/Extensions/raw/master/index.xml", Enabled: true, AutoInstall: AutoInstallUseGlobalDefault},
	{Name: "ReaTeam Scripts", URL: "https://github.com/ReaTeam/ReaScripts/raw/master/index.xml", Enabled: true, AutoInstall: AutoInstallUseGlobalDefault},
	{Name: "ReaTeam JSFX", URL: "https://github.com/ReaTeam/JSFX/raw/master/index.xml", Enabled: true, AutoInstall: AutoInstallUseGlobalDefault},
	{Name: "ReaTeam Themes", URL: "https://github.com/ReaTeam/Themes/raw/master/index.xml", Enabled: true, AutoInstall: AutoInstallUseGlobalDefault},
	{Name: "ReaTeam LangPacks", URL: "https://github.com/ReaTeam/LangPacks/raw/master/index.xml", Enabled: true, AutoInstall: AutoInstallUseGlobalDefault},
}
