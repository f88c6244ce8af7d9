// Package plugin implements the chain-of-responsibility dispatch
// table: a registry of operation tables (equal, compare, remove_worst,
// cache_match, add_to_cache), walked in registration order until one
// answers.
package plugin

import (
	"errors"

	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/location"
)

// Magic validates a Table at registration time, mirroring SKY_MAGIC's
// use as the plugin-table sanity check in plugin.c's sky_plugin_add.
const Magic = 0xD1967806

// Result is the three-valued outcome a plugin operation returns: answer
// found (Success), explicitly answered no (Failure), or "I cannot
// answer, ask the next plugin" (Error). The dispatcher stops at the
// first non-Error result.
type Result int

const (
	ResultError Result = iota
	ResultSuccess
	ResultFailure
)

// ErrNoPlugin is returned when every registered plugin answers Error for
// an operation, matching SKY_ERROR_NO_PLUGIN.
var ErrNoPlugin = errors.New("plugin: no plugin answered")

// ErrCorruptTable is returned by Chain.Add when a table's magic fails
// validation.
var ErrCorruptTable = errors.New("plugin: corrupt plugin table")

// RequestContext is the slice of a request context's state that plugin
// operations need. pkg/request's Context type satisfies this
// structurally, avoiding an import cycle between the two packages.
type RequestContext interface {
	Beacons() []*beacon.Beacon
	NumAP() int
	SetNumAP(n int)
	InsertAt(i int, b *beacon.Beacon)
	RemoveAt(i int) (*beacon.Beacon, error)
	CacheMatchPercents() (all, used uint32)
	CacheNegRSSIThreshold() int16
	MaxVAPPerAP() int
	GNSS() beacon.GNSS
	Cache() CacheView
	SetCacheResult(getFrom, saveTo int, hit bool)
	Logf(format string, args ...interface{})
}

// CacheView is the slice of cache.Store plugins need, named here (not in
// pkg/cache) so pkg/cache never has to import pkg/plugin.
type CacheView interface {
	Len() int
	Line(i int) CacheLine
}

// CacheLine is the read view of one cacheline a plugin scores against.
type CacheLine struct {
	Empty   bool
	NumAP   int
	Beacons []*beacon.Beacon
	GNSS    beacon.GNSS
}

// EqualFunc compares two beacons of the kind(s) this plugin handles for
// equivalence (same underlying beacon, possibly with updated transient
// properties). prop, when equal is true, carries the winning merged
// property bits.
type EqualFunc func(ctx RequestContext, a, b *beacon.Beacon) (res Result, equal bool, prop beacon.Property)

// CompareFunc orders two beacons of the kind(s) this plugin handles;
// diff > 0 means a outranks b.
type CompareFunc func(ctx RequestContext, a, b *beacon.Beacon) (res Result, diff int)

// RemoveWorstFunc evicts the least valuable beacon of the kind(s) this
// plugin handles from the request context.
type RemoveWorstFunc func(ctx RequestContext) Result

// CacheMatchFunc scores every cacheline against the request context and,
// via ctx.SetCacheResult, records the best get/save indices and hit
// decision.
type CacheMatchFunc func(ctx RequestContext) Result

// AddToCacheFunc reports whether the request context's scan and loc may
// be written into the cacheline ctx's cache-match pass selected (Success)
// or not (Failure). It does not perform the write itself.
type AddToCacheFunc func(ctx RequestContext, loc location.Location) Result

// Table is one plugin's entry points, mirroring Sky_plugin_table_t.
type Table struct {
	Name        string
	Magic       uint32
	Equal       EqualFunc
	Compare     CompareFunc
	RemoveWorst RemoveWorstFunc
	CacheMatch  CacheMatchFunc
	AddToCache  AddToCacheFunc
}

// Chain is the registered, ordered list of plugin tables.
type Chain struct {
	tables []*Table
}

// Add appends table to the chain. Registering the same table twice is a
// silent success; a table with a bad magic is a hard error.
func (c *Chain) Add(table *Table) error {
	if table == nil || table.Magic != Magic {
		return ErrCorruptTable
	}
	for _, t := range c.tables {
		if t == table {
			return nil
		}
	}
	c.tables = append(c.tables, table)
	return nil
}

func (c *Chain) Equal(ctx RequestContext, a, b *beacon.Beacon) (bool, beacon.Property, error) {
	for _, t := range c.tables {
		if t.Equal == nil {
			continue
		}
		res, eq, prop := t.Equal(ctx, a, b)
		if res != ResultError {
			return eq, prop, nil
		}
	}
	return false, beacon.Property{}, ErrNoPlugin
}

func (c *Chain) Compare(ctx RequestContext, a, b *beacon.Beacon) (int, error) {
	for _, t := range c.tables {
		if t.Compare == nil {
			continue
		}
		res, diff := t.Compare(ctx, a, b)
		if res != ResultError {
			return diff, nil
		}
	}
	return 0, ErrNoPlugin
}

func (c *Chain) RemoveWorst(ctx RequestContext) error {
	for _, t := range c.tables {
		if t.RemoveWorst == nil {
			continue
		}
		if res := t.RemoveWorst(ctx); res != ResultError {
			if res == ResultFailure {
				return ErrNoPlugin
			}
			return nil
		}
	}
	return ErrNoPlugin
}

func (c *Chain) CacheMatch(ctx RequestContext) error {
	for _, t := range c.tables {
		if t.CacheMatch == nil {
			continue
		}
		if res := t.CacheMatch(ctx); res != ResultError {
			return nil
		}
	}
	return ErrNoPlugin
}

func (c *Chain) AddToCache(ctx RequestContext, loc location.Location) error {
	for _, t := range c.tables {
		if t.AddToCache == nil {
			continue
		}
		if res := t.AddToCache(ctx, loc); res != ResultError {
			return nil
		}
	}
	return ErrNoPlugin
}

// Default returns the basic chain: {ap_basic, cell_basic}. Swapping
// ap_basic for the premium AP plugin (PremiumWiFiTable) enables
// virtual-group handling with no other change.
func Default() *Chain {
	c := &Chain{}
	_ = c.Add(BasicWiFiTable)
	_ = c.Add(CellTable)
	return c
}

// Premium returns the chain with the premium Wi-Fi plugin in place of
// the basic one.
func Premium() *Chain {
	c := &Chain{}
	_ = c.Add(PremiumWiFiTable)
	_ = c.Add(CellTable)
	return c
}
