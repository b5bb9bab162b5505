// File: iomgr/interface_registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// InterfaceFactory registration mirrors ReactorFactory's driver idiom in
// reactor.go: package drive registers its concrete IOInterface
// constructors here from an init(), so Start's automatic interface
// bring-up can build a generic interface and a drive interface without
// iomgr importing drive and creating a cycle.

package iomgr

// InterfaceFactory constructs an IOInterface bound to mgr. Used by
// defaultInterfaceAdder when Config.InterfaceAdder is nil.
type InterfaceFactory func(mgr *IOManager) (IOInterface, error)

var interfaceFactories = map[string]InterfaceFactory{}

// RegisterInterfaceFactory makes an interface implementation available to
// the default interface adder under name ("generic", "aio-drive",
// "polled-drive"). Called from an init() in package drive.
func RegisterInterfaceFactory(name string, f InterfaceFactory) {
	interfaceFactories[name] = f
}

func lookupInterfaceFactory(name string) (InterfaceFactory, bool) {
	f, ok := interfaceFactories[name]
	return f, ok
}
