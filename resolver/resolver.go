// Package resolver decides which conversation two parties should use,
// or creates it. The row store cannot enforce uniqueness over a
// participant set, so resolution for a given canonical key is
// serialized through a per-key mutex: sequential and same-process
// concurrent resolutions can never mint duplicates. Duplicates written
// by other processes are still tolerated via the tie-break rule.
package resolver

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"shopdesk/contract"
	"shopdesk/domain"
	"shopdesk/errors"
)

type Resolver struct {
	mu            sync.Mutex
	keyed         map[string]*sync.Mutex
	conversations contract.ConversationStore
	participants  contract.ParticipantStore
	staff         contract.StaffDirectory
	log           *slog.Logger
}

func New(conversations contract.ConversationStore, participants contract.ParticipantStore,
	staff contract.StaffDirectory, log *slog.Logger) *Resolver {
	return &Resolver{
		keyed:         make(map[string]*sync.Mutex),
		conversations: conversations,
		participants:  participants,
		staff:         staff,
		log:           log,
	}
}

// ResolveOrCreate finds the conversation where self holds selfRole and
// other holds otherRole, creating it when none exists. At most one
// conversation row and its participant rows are written per call; a
// pure cache-hit has no side effects.
func (r *Resolver) ResolveOrCreate(selfID string, selfRole domain.Role,
	otherID string, otherRole domain.Role, kind domain.Kind) (domain.Conversation, error) {
	switch kind {
	case domain.KindStaffToStaff:
		return r.resolveStaffPair(selfID, selfRole, otherID, otherRole)
	case domain.KindDirectWithStaffGroup:
		customer, err := customerOf(selfID, selfRole, otherID, otherRole)
		if err != nil {
			return domain.Conversation{}, err
		}
		return r.resolveDirect(customer)
	default:
		return domain.Conversation{}, fmt.Errorf("%q: %w", kind, errors.ErrUnknownKind)
	}
}

func (r *Resolver) resolveStaffPair(selfID string, selfRole domain.Role,
	otherID string, otherRole domain.Role) (domain.Conversation, error) {
	unlock := r.lock(pairKey(selfID, selfRole, otherID, otherRole))
	defer unlock()

	mine, err := r.participants.ConversationsByMember(selfID, selfRole)
	if err != nil {
		return domain.Conversation{}, err
	}
	theirs, err := r.participants.ConversationsByMember(otherID, otherRole)
	if err != nil {
		return domain.Conversation{}, err
	}

	// A shared membership is not enough: both staff sit in every direct
	// conversation as materialized group members, so only rows of the
	// pair kind count as a hit.
	var pairs []domain.Conversation
	for _, id := range lo.Intersect(mine, theirs) {
		conversation, err := r.conversations.GetByID(id)
		if err != nil {
			return domain.Conversation{}, err
		}
		if conversation.Kind == domain.KindStaffToStaff {
			pairs = append(pairs, conversation)
		}
	}
	if len(pairs) > 0 {
		// Uniqueness is not enforced by the store, so the first identity
		// in order wins and the rest are stale duplicates: not merged,
		// not deleted.
		sort.Slice(pairs, func(i, j int) bool {
			return pairs[i].ID.String() < pairs[j].ID.String()
		})
		if len(pairs) > 1 {
			r.log.Warn("Duplicate conversations for participant pair",
				"count", len(pairs), "picked", pairs[0].ID)
		}
		return pairs[0], nil
	}

	conversation := domain.Conversation{
		ID:        uuid.New(),
		Kind:      domain.KindStaffToStaff,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.conversations.Insert(conversation); err != nil {
		return domain.Conversation{}, err
	}
	// Participant rows follow the conversation row without a rollback
	// path: a failure here leaves a partial conversation, which callers
	// must treat as usable but underspecified.
	members := []domain.Participant{
		{ConversationID: conversation.ID, MemberID: selfID, Role: selfRole},
		{ConversationID: conversation.ID, MemberID: otherID, Role: otherRole},
	}
	for _, member := range members {
		if err := r.participants.Insert(member); err != nil {
			return domain.Conversation{}, err
		}
	}
	return conversation, nil
}

// resolveDirect is keyed by the customer identity alone. Creation
// materializes one participant row per active staff member next to the
// owning customer.
func (r *Resolver) resolveDirect(customerID string) (domain.Conversation, error) {
	unlock := r.lock("direct:" + customerID)
	defer unlock()

	conversation, err := r.conversations.GetByOwner(customerID)
	if err == nil {
		return conversation, nil
	}
	if !isNotFound(err) {
		return domain.Conversation{}, err
	}

	conversation = domain.Conversation{
		ID:        uuid.New(),
		Kind:      domain.KindDirectWithStaffGroup,
		OwnerID:   customerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.conversations.Insert(conversation); err != nil {
		return domain.Conversation{}, err
	}
	if err := r.materializeMembers(conversation); err != nil {
		return domain.Conversation{}, err
	}
	return conversation, nil
}

// SyncStaffParticipants reconciles the materialized staff rows of every
// direct conversation against the current roster. Memberships are
// rebuilt with the only verbs the store grants (delete-by-conversation,
// insert), so a concurrent reader may briefly observe a partial
// conversation; that state is already tolerated.
func (r *Resolver) SyncStaffParticipants() error {
	conversations, err := r.conversations.ListDirect()
	if err != nil {
		return err
	}
	for _, conversation := range conversations {
		if err := r.participants.DeleteByConversation(conversation.ID); err != nil {
			return err
		}
		if err := r.materializeMembers(conversation); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) materializeMembers(conversation domain.Conversation) error {
	err := r.participants.Insert(domain.Participant{
		ConversationID: conversation.ID,
		MemberID:       conversation.OwnerID,
		Role:           domain.RoleCustomer,
	})
	if err != nil {
		return err
	}
	roster, err := r.staff.ActiveStaff()
	if err != nil {
		return err
	}
	for _, staffID := range roster {
		err := r.participants.Insert(domain.Participant{
			ConversationID: conversation.ID,
			MemberID:       staffID,
			Role:           domain.RoleStaff,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// lock serializes resolution per canonical key. The returned func
// releases the key.
func (r *Resolver) lock(key string) func() {
	r.mu.Lock()
	m, ok := r.keyed[key]
	if !ok {
		m = &sync.Mutex{}
		r.keyed[key] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// pairKey canonicalizes a (participant, role) pair so both call orders
// land on the same arbitration point.
func pairKey(selfID string, selfRole domain.Role, otherID string, otherRole domain.Role) string {
	parts := []string{
		selfID + "|" + string(selfRole),
		otherID + "|" + string(otherRole),
	}
	sort.Strings(parts)
	return "pair:" + strings.Join(parts, "#")
}

func customerOf(selfID string, selfRole domain.Role, otherID string, otherRole domain.Role) (string, error) {
	switch {
	case selfRole == domain.RoleCustomer:
		return selfID, nil
	case otherRole == domain.RoleCustomer:
		return otherID, nil
	default:
		return "", errors.ErrMissingCustomer
	}
}

func isNotFound(err error) bool {
	return stderrors.Is(err, errors.ErrConversationNotFound)
}
