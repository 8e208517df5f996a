package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Source          = (*Tenant)(nil)
	_ Source          = (*HostServices)(nil)
	_ TenantLookup    = (*TenantRegistry)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
