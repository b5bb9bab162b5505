package iomgr_test

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/hioload-ws/iomgr"
)

type nullInterface struct{ name string }

func (n *nullInterface) Name() string                                    { return n.name }
func (n *nullInterface) OnIOThreadStart(t *iomgr.IOThread) error         { return nil }
func (n *nullInterface) OnIOThreadStop(t *iomgr.IOThread) error          { return nil }
func (n *nullInterface) HandleEvent(dev *iomgr.IODevice, event int) error { return nil }

var _ iomgr.IOInterface = (*nullInterface)(nil)

func TestAddDriveInterfaceTracksSeparateListAndDefault(t *testing.T) {
	mgr, _ := newFakeManager(t, "test-drive-list", 1, func(int) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCtx, wcancel := context.WithTimeout(context.Background(), time.Second)
	defer wcancel()
	_ = mgr.WaitForState(waitCtx, iomgr.StateRunning)

	drv := &nullInterface{name: "drive-a"}
	if err := mgr.AddDriveInterface(drv, true); err != nil {
		t.Fatalf("add drive interface: %v", err)
	}

	if got := mgr.DriveInterfaces(); len(got) != 1 || got[0].Name() != "drive-a" {
		t.Fatalf("expected drive-interface list to contain drive-a, got %v", got)
	}
	if def, ok := mgr.DefaultDriveInterface(); !ok || def.Name() != "drive-a" {
		t.Fatalf("expected drive-a to be the default drive interface, got %v ok=%v", def, ok)
	}
	// AddDriveInterface also goes through the normal interface list.
	found := false
	for _, iface := range mgr.Interfaces() {
		if iface.Name() == "drive-a" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected drive-a to also appear in the full interface list")
	}
}

func TestRegisterDeviceFallsBackToDefaultDrive(t *testing.T) {
	mgr, reactors := newFakeManager(t, "test-register-device", 1, func(int) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCtx, wcancel := context.WithTimeout(context.Background(), time.Second)
	defer wcancel()
	_ = mgr.WaitForState(waitCtx, iomgr.StateRunning)

	drv := &nullInterface{name: "drive-b"}
	if err := mgr.AddDriveInterface(drv, true); err != nil {
		t.Fatalf("add drive interface: %v", err)
	}

	dev := iomgr.NewGlobalDevice(iomgr.DeviceHandle{Kind: iomgr.HandleFD, FD: 42}, nil, nil)
	if err := mgr.RegisterDevice(dev); err != nil {
		t.Fatalf("register device: %v", err)
	}
	if dev.Interface == nil || dev.Interface.Name() != "drive-b" {
		t.Fatalf("expected device to fall back to the default drive interface, got %v", dev.Interface)
	}
	if len(reactors[0].AttachedDevices) != 1 || reactors[0].AttachedDevices[0] != dev {
		t.Fatalf("expected the device to be attached to the single reactor, got %v", reactors[0].AttachedDevices)
	}

	if err := mgr.UnregisterDevice(dev); err != nil {
		t.Fatalf("unregister device: %v", err)
	}
	if len(reactors[0].AttachedDevices) != 0 {
		t.Fatalf("expected device detached, got %v", reactors[0].AttachedDevices)
	}
}

func TestRegisterDeviceWithNoDriveInterfaceFails(t *testing.T) {
	mgr, _ := newFakeManager(t, "test-register-device-no-drive", 1, func(int) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCtx, wcancel := context.WithTimeout(context.Background(), time.Second)
	defer wcancel()
	_ = mgr.WaitForState(waitCtx, iomgr.StateRunning)

	dev := iomgr.NewGlobalDevice(iomgr.DeviceHandle{Kind: iomgr.HandleFD, FD: 7}, nil, nil)
	if err := mgr.RegisterDevice(dev); err != iomgr.ErrNoDriveInterface {
		t.Fatalf("expected ErrNoDriveInterface, got %v", err)
	}
}
