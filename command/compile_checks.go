package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessRecordMessage] = (*ProcessRecordCommand)(nil)
	_ gocmd.Commander[SweepPendingMessage]  = (*SweepPendingCommand)(nil)
)
