package singleton

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gitlab.com/stephen-fox/singlescan/memory"
	"gitlab.com/stephen-fox/singlescan/module"
	"gitlab.com/stephen-fox/singlescan/pattern"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const (
	DefaultCodeSection = ".text"
	DefaultDataSection = ".data"
	DefaultExportPath  = "./singletons.csv"
	DefaultMaxNameLen  = 4096
)

var (
	ErrSectionLookup      = errors.New("failed to look up executable section")
	ErrPattern            = errors.New("invalid null check idiom pattern")
	ErrNameResolution     = errors.New("failed to resolve singleton name")
	ErrMalformedName      = errors.New("singleton name is malformed")
	ErrExport             = errors.New("failed to export singleton table")
	ErrCallingUnsupported = errors.New("calling functions of the target is not supported on this platform")
)

// NameFunc calls the name function of a singleton class and returns
// the address of its NUL terminated name.
type NameFunc func(fn uintptr, metadata uintptr) (uintptr, error)

// BuildConfig configures Build.
type BuildConfig struct {
	// Memory is the address space of the executable.
	Memory memory.Memory

	// Resolver locates the executable and its sections.
	Resolver module.Resolver

	// ModuleNames are the names the executable may be loaded as.
	// The first loaded one is used.
	ModuleNames []string

	CodeSection string
	DataSection string

	// Pattern is the idiom to scan for. It must be 24 bytes long and
	// have three 4 byte capture groups laid out like NullCheckIdiom.
	// NullCheckIdiom is used if Pattern is empty.
	Pattern string

	NameFunc NameFunc

	// MaxNameLen is the maximum length of a name, excluding
	// the NUL terminator.
	MaxNameLen int

	// SkipMalformedNames drops candidates whose name is not valid
	// UTF-8, or is longer than MaxNameLen, instead of failing the build.
	SkipMalformedNames bool

	// ExportPath is the file the table is written to after it
	// is built. Export is disabled if ExportPath is empty.
	ExportPath string

	// IgnoreExportErrors logs export failures instead of failing
	// the build.
	IgnoreExportErrors bool
}

func (o BuildConfig) validate() error {
	if o.Memory == nil {
		return fmt.Errorf("memory cannot be nil")
	}

	if o.Resolver == nil {
		return fmt.Errorf("module resolver cannot be nil")
	}

	if len(o.ModuleNames) == 0 {
		return fmt.Errorf("at least one module name must be specified")
	}

	if o.CodeSection == "" || o.DataSection == "" {
		return fmt.Errorf("code and data section names cannot be empty")
	}

	if o.NameFunc == nil {
		return fmt.Errorf("name function cannot be nil")
	}

	if o.MaxNameLen <= 0 {
		return fmt.Errorf("maximum name length must be greater than 0")
	}

	return nil
}

// DefaultBuildConfig returns a BuildConfig for the executable loaded
// in the current process.
func DefaultBuildConfig() BuildConfig {
	moduleNames := make([]string, len(module.DefaultModuleNames))
	copy(moduleNames, module.DefaultModuleNames)

	return BuildConfig{
		Memory:      memory.Self(),
		Resolver:    module.Process(),
		ModuleNames: moduleNames,
		CodeSection: DefaultCodeSection,
		DataSection: DefaultDataSection,
		Pattern:     NullCheckIdiom,
		NameFunc:    CallNameResolver,
		MaxNameLen:  DefaultMaxNameLen,
		ExportPath:  DefaultExportPath,
	}
}

// Build scans the executable described by config for the null check
// idiom and returns a table of the singletons it found.
//
// When more than one candidate resolves to the same name, the
// candidate found last in the code section wins.
func Build(config BuildConfig) (*Table, error) {
	err := config.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid build config - %w", err)
	}

	code, err := module.FindSection(config.Resolver, config.Memory, config.ModuleNames, config.CodeSection)
	if err != nil {
		return nil, fmt.Errorf("%w - %w", ErrSectionLookup, err)
	}

	data, err := module.FindSection(config.Resolver, config.Memory, config.ModuleNames, config.DataSection)
	if err != nil {
		return nil, fmt.Errorf("%w - %w", ErrSectionLookup, err)
	}

	idiom := config.Pattern
	if idiom == "" {
		idiom = NullCheckIdiom
	}

	p, err := pattern.Compile(idiom)
	if err != nil {
		return nil, fmt.Errorf("%w - %w", ErrPattern, err)
	}

	candidates, err := FindCandidates(code, data, p)
	if err != nil {
		return nil, err
	}

	table := NewTable(nil)

	for _, c := range candidates {
		name, err := resolveName(config, c)
		if errors.Is(err, ErrMalformedName) && config.SkipMalformedNames {
			log.WithField("candidate", c.String()).Warnf("skipping candidate - %s", err)
			continue
		}
		if err != nil {
			return nil, err
		}

		table.set(name, c.Instance)
	}

	log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"singletons": table.Len(),
	}).Info("built singleton table")

	if config.ExportPath != "" {
		err = table.ExportFile(config.ExportPath)
		if err != nil {
			if !config.IgnoreExportErrors {
				return nil, fmt.Errorf("%w - %w", ErrExport, err)
			}

			log.Warnf("%s - %s", ErrExport, err)
		}
	}

	return table, nil
}

func resolveName(config BuildConfig, c Candidate) (string, error) {
	nameAddr, err := config.NameFunc(c.Resolver, c.Metadata)
	if err != nil {
		return "", fmt.Errorf("%w: %s - %w", ErrNameResolution, c, err)
	}

	raw, err := memory.ReadCString(config.Memory, nameAddr, config.MaxNameLen)
	if errors.Is(err, memory.ErrUnterminated) {
		return "", fmt.Errorf("%w: name at 0x%x for %s is longer than %d bytes - %w",
			ErrMalformedName, nameAddr, c, config.MaxNameLen, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to read name at 0x%x for %s - %w",
			ErrNameResolution, nameAddr, c, err)
	}

	name, _, err := transform.Bytes(encoding.UTF8Validator, raw)
	if err != nil {
		return "", fmt.Errorf("%w: name at 0x%x for %s - %w",
			ErrMalformedName, nameAddr, c, err)
	}

	return string(name), nil
}
