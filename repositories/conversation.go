package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"threadly/domain"
	"threadly/errors"
)

// seqPadWidth gives 19-digit zero padding so sequence numbers sort
// lexicographically inside badger keys.
const seqPadWidth = "%019d"

// maxSeqSuffix is the seek anchor for newest-first scans.
const maxSeqSuffix = "9999999999999999999"

// ConversationRepository is the authoritative conversation store, backed
// by BadgerDB. Two key families:
//
//	conv:{pairKey}            -> Conversation record (participants, summary, NextSeq)
//	msg:{pairKey}:{seq 19pad} -> Message record
//
// Appends and seen-marking for one conversation are serialized by a
// per-conversation mutex; the persisted NextSeq counter yields a total
// order that wall clocks cannot provide under concurrent writers.
// Different conversations proceed in parallel.
type ConversationRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewConversationRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *ConversationRepository {
	return &ConversationRepository{
		db:            db,
		log:           log,
		limitMessages: limitMessages,
		locks:         make(map[string]*sync.Mutex),
	}
}

// lockFor returns the sequencing point of a conversation, creating it on
// first use. Lock entries are never reclaimed; the set of active
// conversations per process stays small enough.
func (r *ConversationRepository) lockFor(conversationID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[conversationID] = l
	}
	return l
}

func convKey(conversationID string) []byte {
	return []byte("conv:" + conversationID)
}

func msgKey(conversationID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("msg:%s:"+seqPadWidth, conversationID, seq))
}

func msgPrefix(conversationID string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversationID))
}

// AppendMessage appends a message, lazily creating the conversation when
// the caller addresses a peer instead of an existing conversation. The
// sender must be one of the two participants.
func (r *ConversationRepository) AppendMessage(
	senderID, conversationID, peerID string,
	body domain.Body,
	at time.Time) (domain.Message, domain.Conversation, error) {

	allowCreate := false
	if conversationID == "" {
		if peerID == "" {
			return domain.Message{}, domain.Conversation{}, errors.ErrUnknownConversation
		}
		if peerID == senderID {
			return domain.Message{}, domain.Conversation{}, errors.ErrSelfConversation
		}
		conversationID = domain.PairKey(senderID, peerID)
		allowCreate = true
	}

	lock := r.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	var message domain.Message
	var conversation domain.Conversation

	err := r.db.Update(func(txn *badger.Txn) error {
		conv, err := r.loadConversation(txn, conversationID)
		switch {
		case err == nil:
			// Existing conversation: the sender must belong to it.
			if !conv.HasParticipant(senderID) {
				return errors.ErrNotParticipant
			}
		case err == errors.ErrUnknownConversation && allowCreate:
			conv = domain.NewConversation(senderID, peerID)
		default:
			return err
		}

		seq := conv.NextSeq
		conv.NextSeq++

		message = domain.Message{
			ID:             uuid.New(),
			ConversationID: conversationID,
			SenderID:       senderID,
			Text:           body.Text,
			Image:          body.Image,
			ImageMIME:      body.ImageMIME,
			Seq:            seq,
			CreatedAt:      at,
		}

		conv.LastMessage = domain.LastMessage{
			Text:     message.Summary(),
			SenderID: senderID,
			Seq:      seq,
			Seen:     false,
			At:       at,
		}
		conv.UpdatedAt = at
		conversation = conv

		msgBytes, err := json.Marshal(message)
		if err != nil {
			return err
		}
		if err := txn.Set(msgKey(conversationID, seq), msgBytes); err != nil {
			return err
		}

		convBytes, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		return txn.Set(convKey(conversationID), convBytes)
	})
	if err != nil {
		return domain.Message{}, domain.Conversation{}, err
	}
	return message, conversation, nil
}

// MarkSeen flips the seen flag on the most recent message not authored by
// the viewer and not yet seen. It returns nil when no message qualifies,
// which makes repeated calls idempotent. The flag never reverts.
func (r *ConversationRepository) MarkSeen(conversationID, viewerID string) (*domain.Message, error) {
	lock := r.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	var seen *domain.Message

	err := r.db.Update(func(txn *badger.Txn) error {
		conv, err := r.loadConversation(txn, conversationID)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(viewerID) {
			return errors.ErrNotParticipant
		}

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := msgPrefix(conversationID)
		it.Seek(append(append([]byte{}, prefix...), []byte(maxSeqSuffix)...))

		for ; it.ValidForPrefix(prefix); it.Next() {
			var msg domain.Message
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			})
			if err != nil {
				return err
			}
			if msg.SenderID == viewerID {
				continue
			}
			if msg.Seen {
				// The viewer already caught up; nothing to do.
				return nil
			}

			msg.Seen = true
			msgBytes, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(msgKey(conversationID, msg.Seq), msgBytes); err != nil {
				return err
			}

			// Keep the list summary in sync when the latest message flipped.
			if conv.LastMessage.Seq == msg.Seq {
				conv.LastMessage.Seen = true
				convBytes, err := json.Marshal(conv)
				if err != nil {
					return err
				}
				if err := txn.Set(convKey(conversationID), convBytes); err != nil {
					return err
				}
			}

			seen = &msg
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seen, nil
}

// ListConversations returns every conversation the user participates in,
// ordered by most recent activity first.
func (r *ConversationRepository) ListConversations(userID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("conv:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var conv domain.Conversation
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &conv)
			})
			if err != nil {
				return err
			}
			if conv.HasParticipant(userID) {
				conversations = append(conversations, conv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

// GetMessages retrieves a newest-first page of messages using a prefix
// scan. Thanks to the padded sequence in the key, messages are naturally
// sorted; the cursor is the key suffix of the last message of the
// previous page.
func (r *ConversationRepository) GetMessages(conversationID, viewerID string, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string

	err := r.db.View(func(txn *badger.Txn) error {
		conv, err := r.loadConversation(txn, conversationID)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(viewerID) {
			return errors.ErrNotParticipant
		}

		prefix := msgPrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append(append([]byte{}, prefix...), []byte(maxSeqSuffix)...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}

		it.Seek(seekKey)

		// The cursor names an already-delivered message; skip it.
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(messages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *r.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			var msg domain.Message
			err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			})
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

func (r *ConversationRepository) loadConversation(txn *badger.Txn, conversationID string) (domain.Conversation, error) {
	item, err := txn.Get(convKey(conversationID))
	if err == badger.ErrKeyNotFound {
		return domain.Conversation{}, errors.ErrUnknownConversation
	}
	if err != nil {
		return domain.Conversation{}, err
	}

	var conv domain.Conversation
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &conv)
	})
	return conv, err
}
