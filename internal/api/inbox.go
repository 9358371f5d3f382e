// Package api implements the daemon's Inbox gRPC service on top of the sync
// engine.
package api

import "github.com/matheus3301/recipebox/internal/rpc"

// Inbox groups the services into one rpc.InboxServer.
type Inbox struct {
	*SessionService
	*ConversationService
	*MessageService
	*NotificationService
	*SyncService
}

var _ rpc.InboxServer = (*Inbox)(nil)
