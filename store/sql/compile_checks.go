package sqlstore

import "github.com/goliatone/go-logger/glog"

var (
	_ glog.Logger       = (*TenantLogger)(nil)
	_ glog.FieldsLogger = (*TenantLogger)(nil)
)
