package singleton

import (
	"errors"
	"fmt"
	"sync"

	"gitlab.com/stephen-fox/singlescan/memory"
)

var (
	ErrTableBuildFailed = errors.New("singleton table could not be built")
	ErrNotFound         = errors.New("singleton is not in the table")
)

var (
	defaultAccessor     *Accessor
	defaultAccessorOnce sync.Once
)

// Reflectable is implemented by types that describe the memory layout
// of a reflected singleton class. ReflectionName must be declared on
// the value receiver and return the name the class reports at runtime.
//
// The layout is not validated. It is up to the caller to make sure
// the type matches the class.
type Reflectable interface {
	ReflectionName() string
}

// NewAccessor creates an Accessor that builds its table from config
// the first time the table is needed.
func NewAccessor(config BuildConfig) *Accessor {
	return &Accessor{
		config: config,
	}
}

// Accessor provides typed access to singleton instances. The table is
// built at most once. Concurrent callers wait for the build and all
// observe the same table or the same error.
type Accessor struct {
	// OptBuildFailureFn, when non-nil, is called once if building
	// the table fails.
	OptBuildFailureFn func(error)

	config BuildConfig
	once   sync.Once
	table  *Table
	err    error
}

// Table returns the singleton table, building it if needed.
func (o *Accessor) Table() (*Table, error) {
	o.once.Do(func() {
		o.table, o.err = Build(o.config)
		if o.err != nil && o.OptBuildFailureFn != nil {
			o.OptBuildFailureFn(o.err)
		}
	})

	return o.table, o.err
}

// Memory returns the memory instances are read from.
func (o *Accessor) Memory() memory.Memory {
	return o.config.Memory
}

// Lookup returns the live instance of T.
//
// If the instance pointer of T is zero, then (nil, nil) is returned.
// This is not an error; some singletons only exist some of the time.
// ErrNotFound is returned if T's name is not in the table, and
// ErrTableBuildFailed if the table could not be built.
func Lookup[T Reflectable](a *Accessor) (*T, error) {
	table, err := a.Table()
	if err != nil {
		return nil, fmt.Errorf("%w - %w", ErrTableBuildFailed, err)
	}

	var zero T
	name := zero.ReflectionName()

	addr, hasIt := table.Address(name)
	if !hasIt {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	instance, err := memory.ReadPointer(a.Memory(), addr)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance pointer of %q at 0x%x - %w",
			name, addr, err)
	}

	if instance == 0 {
		return nil, nil
	}

	return memory.As[T](instance), nil
}

// LookupOrExit calls Lookup. DefaultExitFn is invoked if an error occurs.
func LookupOrExit[T Reflectable](a *Accessor) *T {
	instance, err := Lookup[T](a)
	if err != nil {
		DefaultExitFn(err)
	}

	return instance
}

// Default returns the Accessor of the current process, which is
// configured by DefaultBuildConfig. If its table cannot be built,
// then DefaultExitFn is invoked.
func Default() *Accessor {
	defaultAccessorOnce.Do(func() {
		defaultAccessor = NewAccessor(DefaultBuildConfig())
		defaultAccessor.OptBuildFailureFn = func(err error) {
			DefaultExitFn(fmt.Errorf("failed to build singleton table - %w", err))
		}
	})

	return defaultAccessor
}

// Instance returns the live instance of T in the current process.
// Refer to Lookup for details.
func Instance[T Reflectable]() (*T, error) {
	return Lookup[T](Default())
}

// InstanceOrExit calls Instance. DefaultExitFn is invoked if an
// error occurs.
func InstanceOrExit[T Reflectable]() *T {
	return LookupOrExit[T](Default())
}
