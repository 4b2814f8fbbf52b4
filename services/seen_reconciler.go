package services

import (
	"log/slog"

	"threadly/contract"
	"threadly/domain"
	"threadly/domain/event"
)

// SeenReconciler drives the Unseen -> Seen transition of a conversation
// for a viewer. The transition fires on an explicit activation signal from
// the client, never inferred from delivery, and is one-directional.
type SeenReconciler struct {
	store      contract.IConversationStore
	dispatcher contract.Dispatcher
	log        *slog.Logger
}

func NewSeenReconciler(store contract.IConversationStore, dispatcher contract.Dispatcher, log *slog.Logger) *SeenReconciler {
	return &SeenReconciler{store: store, dispatcher: dispatcher, log: log}
}

// Reconcile marks the latest counterpart message as seen and notifies the
// original sender's live connections. A nil result from the store means
// the viewer already caught up: no receipt is re-emitted, which makes
// repeated activation signals idempotent.
func (r *SeenReconciler) Reconcile(cmd domain.MarkSeenCommand) error {
	msg, err := r.store.MarkSeen(cmd.ConversationID, cmd.ViewerID)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	r.dispatcher.Dispatch(event.MessagesSeen{
		ConversationID: cmd.ConversationID,
		SenderID:       msg.SenderID,
		ViewerID:       cmd.ViewerID,
	})
	return nil
}
