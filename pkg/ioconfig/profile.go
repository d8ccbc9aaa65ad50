// Package ioconfig persists named serial-port profiles so a FILINK
// user does not have to retype device/baud/parity flags on every
// invocation. Profiles live in an INI file, one section per profile,
// mirroring how the teacher stack already round-trips structured
// configuration through gopkg.in/ini.v1.
package ioconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/ini.v1"

	"github.com/filink/filink/pkg/transport"
)

// Profile is a named, persisted transport.SerialConfig.
type Profile struct {
	Name string
	transport.SerialConfig
}

var parityNames = map[transport.Parity]string{
	transport.ParityNone: "none",
	transport.ParityOdd:  "odd",
	transport.ParityEven: "even",
}

var parityValues = map[string]transport.Parity{
	"none": transport.ParityNone,
	"odd":  transport.ParityOdd,
	"even": transport.ParityEven,
}

// DefaultPath returns the profile store path under the user's home
// directory, ~/.filink/profiles.ini.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("ioconfig: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".filink", "profiles.ini"), nil
}

// Load reads every profile from path. A missing file is not an error:
// it is treated as an empty store, the same way a first-run CLI would
// find no saved profiles.
func Load(path string) (map[string]Profile, error) {
	profiles := map[string]Profile{}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return profiles, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("ioconfig: load %s: %w", path, err)
	}

	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		p, err := profileFromSection(section)
		if err != nil {
			return nil, fmt.Errorf("ioconfig: section %q: %w", section.Name(), err)
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// Save writes every profile in profiles to path, creating its parent
// directory if necessary and replacing any existing file. Sections are
// emitted in name order for a stable, diffable file.
func Save(path string, profiles map[string]Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("ioconfig: create %s: %w", filepath.Dir(path), err)
	}

	out := ini.Empty()
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := profiles[name]
		section, err := out.NewSection(name)
		if err != nil {
			return fmt.Errorf("ioconfig: create section %q: %w", name, err)
		}
		if err := populateSection(section, p); err != nil {
			return fmt.Errorf("ioconfig: populate section %q: %w", name, err)
		}
	}
	return out.SaveTo(path)
}

func populateSection(section *ini.Section, p Profile) error {
	fields := []struct{ key, value string }{
		{"Device", p.Device},
		{"BaudRate", strconv.Itoa(p.BaudRate)},
		{"DataBits", strconv.Itoa(p.DataBits)},
		{"Parity", parityNames[p.Parity]},
		{"StopBits", strconv.Itoa(p.StopBits)},
		{"ReadTimeoutMS", strconv.FormatInt(p.ReadTimeout.Milliseconds(), 10)},
	}
	for _, f := range fields {
		if _, err := section.NewKey(f.key, f.value); err != nil {
			return err
		}
	}
	return nil
}

func profileFromSection(section *ini.Section) (Profile, error) {
	baud, err := section.Key("BaudRate").Int()
	if err != nil {
		return Profile{}, fmt.Errorf("BaudRate: %w", err)
	}
	dataBits, err := section.Key("DataBits").Int()
	if err != nil {
		return Profile{}, fmt.Errorf("DataBits: %w", err)
	}
	stopBits, err := section.Key("StopBits").Int()
	if err != nil {
		return Profile{}, fmt.Errorf("StopBits: %w", err)
	}
	timeoutMS, err := section.Key("ReadTimeoutMS").Int64()
	if err != nil {
		return Profile{}, fmt.Errorf("ReadTimeoutMS: %w", err)
	}
	parity, ok := parityValues[section.Key("Parity").String()]
	if !ok {
		return Profile{}, fmt.Errorf("Parity: unrecognized value %q", section.Key("Parity").String())
	}

	return Profile{
		Name: section.Name(),
		SerialConfig: transport.SerialConfig{
			Device:      section.Key("Device").String(),
			BaudRate:    baud,
			DataBits:    dataBits,
			Parity:      parity,
			StopBits:    stopBits,
			ReadTimeout: time.Duration(timeoutMS) * time.Millisecond,
		},
	}, nil
}
