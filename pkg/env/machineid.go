package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "rtloop"

// UnknownDevice is the device ID used when the machine ID is unavailable.
const UnknownDevice = "unknown"

// DeviceID retrieves an ID identifying the device, derived from the
// machine ID so the raw machine ID is not exposed on the broker.
func DeviceID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return UnknownDevice
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
