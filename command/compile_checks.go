package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-tenants/core"
)

var (
	_ gocmd.Commander[AddTenantMessage]       = (*AddTenantCommand)(nil)
	_ gocmd.Commander[RegisterServiceMessage] = (*RegisterServiceCommand)(nil)
	_ gocmd.Commander[ShutdownMessage]        = (*ShutdownCommand)(nil)

	_ MutatingService = (*core.Host)(nil)
)
