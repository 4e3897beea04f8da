//go:build windows

package wmi

import (
	"fmt"
	"runtime"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

const (
	sFalse = 0x00000001

	wbemFlagReturnImmediately = 0x10
	wbemFlagForwardOnly       = 0x20

	wbemAuthenticationLevelCall       = 3
	wbemImpersonationLevelImpersonate = 3
)

type comLocator struct {
	unknown *ole.IUnknown
	locator *ole.IDispatch
}

// NewLocator initializes COM on the calling goroutine's OS thread and creates
// an SWbemLocator. The goroutine stays locked to its thread until Close, so
// NewLocator, every query and Close must run on the same goroutine.
func NewLocator() (Locator, error) {
	runtime.LockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleCode := err.(*ole.OleError).Code()
		if oleCode != ole.S_OK && oleCode != sFalse {
			runtime.UnlockOSThread()
			return nil, fmt.Errorf("initialize COM: %w", err)
		}
	}

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("create SWbemLocator: %w", err)
	}

	disp, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		unknown.Release()
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("query SWbemLocator dispatch: %w", err)
	}

	return &comLocator{unknown: unknown, locator: disp}, nil
}

func (l *comLocator) ConnectServer(namespace string) (Service, error) {
	raw, err := oleutil.CallMethod(l.locator, "ConnectServer", nil, namespace)
	if err != nil {
		return nil, fmt.Errorf("connect server %q: %w", namespace, err)
	}
	return &comService{raw: raw, service: raw.ToIDispatch()}, nil
}

func (l *comLocator) Close() error {
	if l.locator == nil {
		return nil
	}
	l.locator.Release()
	l.unknown.Release()
	l.locator = nil
	l.unknown = nil
	ole.CoUninitialize()
	runtime.UnlockOSThread()
	return nil
}

type comService struct {
	raw     *ole.VARIANT
	service *ole.IDispatch
}

func (s *comService) Authorize() error {
	raw, err := oleutil.GetProperty(s.service, "Security_")
	if err != nil {
		return fmt.Errorf("get Security_: %w", err)
	}
	defer raw.Clear()

	security := raw.ToIDispatch()
	if _, err := oleutil.PutProperty(security, "AuthenticationLevel", int32(wbemAuthenticationLevelCall)); err != nil {
		return fmt.Errorf("set authentication level: %w", err)
	}
	if _, err := oleutil.PutProperty(security, "ImpersonationLevel", int32(wbemImpersonationLevelImpersonate)); err != nil {
		return fmt.Errorf("set impersonation level: %w", err)
	}
	return nil
}

func (s *comService) ExecQuery(query string) (ObjectSet, error) {
	raw, err := oleutil.CallMethod(s.service, "ExecQuery", query, "WQL",
		int32(wbemFlagForwardOnly|wbemFlagReturnImmediately))
	if err != nil {
		return nil, fmt.Errorf("exec query: %w", err)
	}

	enumRaw, err := oleutil.GetProperty(raw.ToIDispatch(), "_NewEnum")
	if err != nil {
		raw.Clear()
		return nil, fmt.Errorf("get _NewEnum: %w", err)
	}
	enum, err := enumRaw.ToIUnknown().IEnumVARIANT(ole.IID_IEnumVariant)
	if err != nil {
		enumRaw.Clear()
		raw.Clear()
		return nil, fmt.Errorf("query IEnumVARIANT: %w", err)
	}

	return &comObjectSet{raw: raw, enumRaw: enumRaw, enum: enum}, nil
}

func (s *comService) Release() {
	if s.raw != nil {
		s.raw.Clear()
		s.raw = nil
	}
}

type comObjectSet struct {
	raw     *ole.VARIANT
	enumRaw *ole.VARIANT
	enum    *ole.IEnumVARIANT
}

// Next waits without a timeout. A zero length reply ends the enumeration
// whether or not the call also reported a failure.
func (o *comObjectSet) Next() (Object, error) {
	item, length, err := o.enum.Next(1)
	if length == 0 {
		if err != nil {
			if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != sFalse {
				return nil, fmt.Errorf("enumerate: %w", err)
			}
		}
		return nil, ErrNoMoreItems
	}
	return &comObject{item: item}, nil
}

func (o *comObjectSet) Release() {
	if o.enum != nil {
		o.enum.Release()
		o.enum = nil
	}
	if o.enumRaw != nil {
		o.enumRaw.Clear()
		o.enumRaw = nil
	}
	if o.raw != nil {
		o.raw.Clear()
		o.raw = nil
	}
}

type comObject struct {
	item ole.VARIANT
}

// Properties reads SystemProperties_ followed by Properties_.
func (o *comObject) Properties() ([]NamedVariant, error) {
	obj := o.item.ToIDispatch()
	if obj == nil {
		return nil, fmt.Errorf("item is not an object (vt=%d)", o.item.VT)
	}

	var props []NamedVariant
	for _, collection := range []string{"SystemProperties_", "Properties_"} {
		if err := readProperties(obj, collection, &props); err != nil {
			return nil, err
		}
	}
	return props, nil
}

func (o *comObject) Release() {
	o.item.Clear()
}

func readProperties(obj *ole.IDispatch, collection string, out *[]NamedVariant) error {
	raw, err := oleutil.GetProperty(obj, collection)
	if err != nil {
		return fmt.Errorf("get %s: %w", collection, err)
	}
	defer raw.Clear()

	return forEach(raw.ToIDispatch(), func(item *ole.VARIANT) error {
		prop := item.ToIDispatch()

		nameRaw, err := oleutil.GetProperty(prop, "Name")
		if err != nil {
			return fmt.Errorf("get property name: %w", err)
		}
		name := nameRaw.ToString()
		nameRaw.Clear()

		valueRaw, err := oleutil.GetProperty(prop, "Value")
		if err != nil {
			return fmt.Errorf("get value of %s: %w", name, err)
		}
		v := detach(valueRaw)
		valueRaw.Clear()

		*out = append(*out, NamedVariant{Name: name, Variant: v})
		return nil
	})
}

// forEach walks an automation collection, clearing every item after f.
func forEach(disp *ole.IDispatch, f func(item *ole.VARIANT) error) error {
	enumRaw, err := disp.GetProperty("_NewEnum")
	if err != nil {
		return fmt.Errorf("get _NewEnum: %w", err)
	}
	defer enumRaw.Clear()

	enum, err := enumRaw.ToIUnknown().IEnumVARIANT(ole.IID_IEnumVariant)
	if err != nil {
		return fmt.Errorf("query IEnumVARIANT: %w", err)
	}
	defer enum.Release()

	for {
		item, length, _ := enum.Next(1)
		if length == 0 {
			return nil
		}
		err := f(&item)
		item.Clear()
		if err != nil {
			return err
		}
	}
}

// detach copies a VARIANT payload into Go memory so the VARIANT can be
// cleared right away.
func detach(v *ole.VARIANT) Variant {
	vt := VarType(v.VT)
	if vt&VTArray != 0 {
		if arr := v.ToArray(); arr != nil {
			return Variant{Type: vt, Val: arr.ToValueArray()}
		}
		return Variant{Type: vt}
	}
	switch vt {
	case VTDispatch, VTUnknown, VTEmpty, VTNull:
		return Variant{Type: vt}
	}
	return Variant{Type: vt, Val: v.Value()}
}
