// Package wmitest provides an in-memory wmi.Locator for tests.
package wmitest

import (
	"sync"

	"github.com/hasaranga/wmi-mcp/internal/wmi"
)

// Object is a canned query result object.
type Object struct {
	Props []wmi.NamedVariant
	// PropsErr, when set, is returned by Properties.
	PropsErr error
}

// Locator serves canned objects keyed by namespace and query. Error fields
// make the corresponding step fail.
type Locator struct {
	mu sync.Mutex

	Results map[string]map[string][]Object

	ConnectErr   error
	AuthorizeErr error
	QueryErr     error
	// NextErr is returned by Next after the canned objects are exhausted
	// instead of wmi.ErrNoMoreItems.
	NextErr error
	// CloseErr is returned by Close.
	CloseErr error

	Connects  []string
	Queries   []string
	Closed    bool
	liveItems int
	liveSets  int
	liveSvcs  int
	peakItems int
}

func New() *Locator {
	return &Locator{Results: make(map[string]map[string][]Object)}
}

// Add registers the objects returned for query in namespace.
func (l *Locator) Add(namespace, query string, objects ...Object) *Locator {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Results[namespace] == nil {
		l.Results[namespace] = make(map[string][]Object)
	}
	l.Results[namespace][query] = append(l.Results[namespace][query], objects...)
	return l
}

// Live reports how many services, object sets and objects have not been
// released.
func (l *Locator) Live() (services, sets, items int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liveSvcs, l.liveSets, l.liveItems
}

// PeakItems reports the largest number of objects alive at the same time.
func (l *Locator) PeakItems() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peakItems
}

func (l *Locator) ConnectServer(namespace string) (wmi.Service, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Connects = append(l.Connects, namespace)
	if l.ConnectErr != nil {
		return nil, l.ConnectErr
	}
	l.liveSvcs++
	return &service{locator: l, namespace: namespace}, nil
}

func (l *Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Closed = true
	return l.CloseErr
}

type service struct {
	locator   *Locator
	namespace string
	released  bool
}

func (s *service) Authorize() error {
	return s.locator.AuthorizeErr
}

func (s *service) ExecQuery(query string) (wmi.ObjectSet, error) {
	l := s.locator
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Queries = append(l.Queries, query)
	if l.QueryErr != nil {
		return nil, l.QueryErr
	}
	l.liveSets++
	return &objectSet{locator: l, objects: l.Results[s.namespace][query]}, nil
}

func (s *service) Release() {
	if s.released {
		return
	}
	s.released = true
	s.locator.mu.Lock()
	s.locator.liveSvcs--
	s.locator.mu.Unlock()
}

type objectSet struct {
	locator  *Locator
	objects  []Object
	pos      int
	released bool
}

func (o *objectSet) Next() (wmi.Object, error) {
	l := o.locator
	if o.pos >= len(o.objects) {
		if l.NextErr != nil {
			return nil, l.NextErr
		}
		return nil, wmi.ErrNoMoreItems
	}
	obj := o.objects[o.pos]
	o.pos++

	l.mu.Lock()
	l.liveItems++
	if l.liveItems > l.peakItems {
		l.peakItems = l.liveItems
	}
	l.mu.Unlock()
	return &object{locator: l, data: obj}, nil
}

func (o *objectSet) Release() {
	if o.released {
		return
	}
	o.released = true
	o.locator.mu.Lock()
	o.locator.liveSets--
	o.locator.mu.Unlock()
}

type object struct {
	locator  *Locator
	data     Object
	released bool
}

func (o *object) Properties() ([]wmi.NamedVariant, error) {
	if o.data.PropsErr != nil {
		return nil, o.data.PropsErr
	}
	return o.data.Props, nil
}

func (o *object) Release() {
	if o.released {
		return
	}
	o.released = true
	o.locator.mu.Lock()
	o.locator.liveItems--
	o.locator.mu.Unlock()
}

// String is a shorthand for a BSTR property.
func String(name, value string) wmi.NamedVariant {
	return wmi.NamedVariant{Name: name, Variant: wmi.Variant{Type: wmi.VTBSTR, Val: value}}
}

// Prop is a shorthand for an arbitrary property.
func Prop(name string, vt wmi.VarType, val interface{}) wmi.NamedVariant {
	return wmi.NamedVariant{Name: name, Variant: wmi.Variant{Type: vt, Val: val}}
}
