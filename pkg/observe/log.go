package observe

import "github.com/golang/glog"

// Log writes each record as one glog line.
type Log struct{}

// Observe implements Observer.
func (Log) Observe(r Record) {
	if r.Kind == KindWarning {
		glog.Warning(r.String())
		return
	}
	glog.Info(r.String())
}
