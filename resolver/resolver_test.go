package resolver

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"shopdesk/domain"
	"shopdesk/errors"
	"shopdesk/repositories"
)

type roster []string

func (r roster) ActiveStaff() ([]string, error) { return r, nil }

func newTestResolver(t *testing.T, staff roster) (*Resolver, repositories.ConversationRepository, repositories.ParticipantRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	conversations := repositories.NewConversationRepository(db, slog.Default())
	participants := repositories.NewParticipantRepository(db, slog.Default())
	return New(conversations, participants, staff, slog.Default()), conversations, participants
}

func Test_Sequential_Resolution_Creates_Exactly_One_Conversation(t *testing.T) {
	req := require.New(t)
	r, _, participants := newTestResolver(t, nil)

	first, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.KindStaffToStaff)
	req.NoError(err)
	req.Equal(domain.KindStaffToStaff, first.Kind)

	second, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.KindStaffToStaff)
	req.NoError(err)
	req.Equal(first.ID, second.ID)

	members, err := participants.ListByConversation(first.ID)
	req.NoError(err)
	req.Len(members, 2)
}

func Test_Resolution_Is_Symmetric_In_Call_Order(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestResolver(t, nil)

	first, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.KindStaffToStaff)
	req.NoError(err)

	swapped, err := r.ResolveOrCreate("bruno", domain.RoleStaff, "anna", domain.RoleStaff, domain.KindStaffToStaff)
	req.NoError(err)
	req.Equal(first.ID, swapped.ID)
}

func Test_Concurrent_Resolution_Is_Serialized_Per_Pair(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestResolver(t, nil)

	const attempts = 8
	results := make([]uuid.UUID, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conversation, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.KindStaffToStaff)
			require.NoError(t, err)
			results[i] = conversation.ID
		}(i)
	}
	wg.Wait()

	for _, id := range results[1:] {
		req.Equal(results[0], id)
	}
}

func Test_Duplicate_Conversations_Tie_Break_Deterministically(t *testing.T) {
	req := require.New(t)
	r, conversations, participants := newTestResolver(t, nil)

	// Two semantically identical conversations, as another process
	// racing this one would have left behind.
	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		conversation := domain.Conversation{
			ID:        uuid.New(),
			Kind:      domain.KindStaffToStaff,
			CreatedAt: time.Now().UTC(),
		}
		req.NoError(conversations.Insert(conversation))
		req.NoError(participants.Insert(domain.Participant{
			ConversationID: conversation.ID, MemberID: "anna", Role: domain.RoleStaff,
		}))
		req.NoError(participants.Insert(domain.Participant{
			ConversationID: conversation.ID, MemberID: "bruno", Role: domain.RoleStaff,
		}))
		ids = append(ids, conversation.ID)
	}
	expected := ids[0]
	if ids[1].String() < ids[0].String() {
		expected = ids[1]
	}

	for i := 0; i < 3; i++ {
		resolved, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.KindStaffToStaff)
		req.NoError(err)
		req.Equal(expected, resolved.ID)
	}
}

func Test_Staff_Pair_Is_Not_Shadowed_By_A_Direct_Conversation(t *testing.T) {
	req := require.New(t)
	r, _, participants := newTestResolver(t, roster{"anna", "bruno"})

	// Both staff already share a membership: the customer's direct
	// conversation materializes the whole roster.
	direct, err := r.ResolveOrCreate("customer-9", domain.RoleCustomer, "", domain.RoleStaff, domain.KindDirectWithStaffGroup)
	req.NoError(err)

	pair, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.KindStaffToStaff)
	req.NoError(err)
	req.Equal(domain.KindStaffToStaff, pair.Kind)
	req.NotEqual(direct.ID, pair.ID)

	members, err := participants.ListByConversation(pair.ID)
	req.NoError(err)
	req.Len(members, 2)

	// Re-resolution keeps landing on the pair conversation.
	again, err := r.ResolveOrCreate("bruno", domain.RoleStaff, "anna", domain.RoleStaff, domain.KindStaffToStaff)
	req.NoError(err)
	req.Equal(pair.ID, again.ID)
}

func Test_Distinct_Pairs_Get_Distinct_Conversations(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestResolver(t, nil)

	ab, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.KindStaffToStaff)
	req.NoError(err)
	ac, err := r.ResolveOrCreate("anna", domain.RoleStaff, "carla", domain.RoleStaff, domain.KindStaffToStaff)
	req.NoError(err)
	req.NotEqual(ab.ID, ac.ID)
}

func Test_Direct_Resolution_Is_Keyed_By_Customer(t *testing.T) {
	req := require.New(t)
	r, _, participants := newTestResolver(t, roster{"staff-1", "staff-2"})

	first, err := r.ResolveOrCreate("customer-9", domain.RoleCustomer, "", domain.RoleStaff, domain.KindDirectWithStaffGroup)
	req.NoError(err)
	req.Equal(domain.KindDirectWithStaffGroup, first.Kind)
	req.Equal("customer-9", first.OwnerID)

	// Customer plus one materialized row per active staff member.
	members, err := participants.ListByConversation(first.ID)
	req.NoError(err)
	req.Len(members, 3)

	second, err := r.ResolveOrCreate("customer-9", domain.RoleCustomer, "", domain.RoleStaff, domain.KindDirectWithStaffGroup)
	req.NoError(err)
	req.Equal(first.ID, second.ID)
}

func Test_Direct_Resolution_Requires_A_Customer(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestResolver(t, nil)

	_, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.KindDirectWithStaffGroup)
	req.ErrorIs(err, errors.ErrMissingCustomer)
}

func Test_Unknown_Kind_Is_Rejected(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestResolver(t, nil)

	_, err := r.ResolveOrCreate("anna", domain.RoleStaff, "bruno", domain.RoleStaff, domain.Kind("group-call"))
	req.ErrorIs(err, errors.ErrUnknownKind)
}

func Test_Sync_Staff_Participants_Follows_The_Roster(t *testing.T) {
	req := require.New(t)
	staff := roster{"staff-1", "staff-2"}
	r, _, participants := newTestResolver(t, staff)

	conversation, err := r.ResolveOrCreate("customer-9", domain.RoleCustomer, "", domain.RoleStaff, domain.KindDirectWithStaffGroup)
	req.NoError(err)

	// staff-2 leaves, staff-3 joins.
	r.staff = roster{"staff-1", "staff-3"}
	req.NoError(r.SyncStaffParticipants())

	members, err := participants.ListByConversation(conversation.ID)
	req.NoError(err)
	req.Len(members, 3)

	var ids []string
	for _, member := range members {
		ids = append(ids, member.MemberID)
	}
	req.ElementsMatch([]string{"customer-9", "staff-1", "staff-3"}, ids)
}
