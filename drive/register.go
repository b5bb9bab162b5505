// File: drive/register.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// init() registers this package's IOInterface variants with iomgr's
// driver-registration idiom (iomgr.RegisterReactorFactory's sibling), so
// IOManager.Start's default interface adder can bring up a generic
// interface plus a drive interface without iomgr importing package drive.

package drive

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/iomgr"
)

func init() {
	iomgr.RegisterInterfaceFactory("generic", newDefaultGeneric)
	iomgr.RegisterInterfaceFactory("aio-drive", newDefaultAIODrive)
	iomgr.RegisterInterfaceFactory("polled-drive", newDefaultPolledDrive)
}

// loggingHandler is the fallback api.Handler behind an automatically
// constructed interface: a caller that wants real device handling
// supplies its own Config.InterfaceAdder instead.
type loggingHandler struct {
	name string
	log  *logrus.Logger
}

func (h loggingHandler) Handle(data any) error {
	h.log.WithFields(logrus.Fields{"interface": h.name, "event": data}).Debug("drive: unhandled event on automatically registered interface")
	return nil
}

func newDefaultGeneric(mgr *iomgr.IOManager) (iomgr.IOInterface, error) {
	return NewGeneric("generic", loggingHandler{name: "generic", log: mgr.Logger()}, mgr.Logger(), mgr.Metrics()), nil
}

func newDefaultAIODrive(mgr *iomgr.IOManager) (iomgr.IOInterface, error) {
	return NewAIODrive("aio-drive", loggingHandler{name: "aio-drive", log: mgr.Logger()}, 2, -1, mgr.Logger(), mgr.Metrics()), nil
}

func newDefaultPolledDrive(mgr *iomgr.IOManager) (iomgr.IOInterface, error) {
	return NewPolledDrive("polled-drive", loggingHandler{name: "polled-drive", log: mgr.Logger()}, mgr.Logger(), mgr.Metrics()), nil
}

var _ api.Handler = loggingHandler{}
