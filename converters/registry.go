package converters

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// ErrUnknownFormat is returned for an output format no writer is registered for.
var ErrUnknownFormat = errors.New("unknown output format")

var (
	writersMu sync.RWMutex
	writers   = make(map[string]common.WriterDriver)
)

// Register makes a writer driver available by the provided format name.
// If Register is called twice with the same name or if driver is nil, it panics.
func Register(name string, driver common.WriterDriver) {
	writersMu.Lock()
	defer writersMu.Unlock()
	if driver == nil {
		panic("converters: Register driver is nil")
	}
	if _, dup := writers[name]; dup {
		panic("converters: Register called twice for writer " + name)
	}
	writers[name] = driver
}

// LookupWriter returns the writer driver registered for format.
func LookupWriter(format string) (common.WriterDriver, error) {
	writersMu.RLock()
	driver, ok := writers[format]
	writersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (forgotten import?)", ErrUnknownFormat, format)
	}
	return driver, nil
}

// OpenWriter opens a writer of the given format for one table.
func OpenWriter(format, path, table string, columns []string, config *common.WriterConfig) (common.Writer, error) {
	driver, err := LookupWriter(format)
	if err != nil {
		return nil, err
	}
	return driver.Open(path, table, columns, config)
}

// Formats returns a sorted list of the names of the registered writers.
func Formats() []string {
	writersMu.RLock()
	defer writersMu.RUnlock()
	list := make([]string, 0, len(writers))
	for name := range writers {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}
