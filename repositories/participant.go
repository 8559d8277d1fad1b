//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"shopdesk/domain"
)

type ParticipantRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewParticipantRepository(db *badger.DB, log *slog.Logger) ParticipantRepository {
	return ParticipantRepository{db: db, log: log}
}

type participantRow struct {
	ConversationID string `json:"conversation_id"`
	MemberID       string `json:"member_id"`
	Role           string `json:"role"`
}

// Insert writes the membership row twice: once under the conversation
// ("part:{conv}:{member}") for roster listing, once under the member
// ("membership:{member}:{role}:{conv}") so the resolver's
// member-and-role lookup is a prefix seek instead of a full scan.
func (p ParticipantRepository) Insert(participant domain.Participant) error {
	bytes, err := encodeRow(fromParticipant(participant))
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(participantKey(participant)), bytes); err != nil {
			return err
		}
		return txn.Set([]byte(membershipKey(participant)), bytes)
	})
}

func (p ParticipantRepository) ListByConversation(conversationID uuid.UUID) ([]domain.Participant, error) {
	var rows []participantRow
	err := p.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("part:%s:", conversationID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var row participantRow
				if err := decodeRow(val, &row); err != nil {
					return err
				}
				rows = append(rows, row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var participants []domain.Participant
	for _, row := range rows {
		participant, err := toParticipant(row)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

// ConversationsByMember returns the conversation identities where the
// member holds exactly this role, in lexicographic identity order.
func (p ParticipantRepository) ConversationsByMember(memberID string, role domain.Role) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefixStr := fmt.Sprintf("membership:%s:%s:", memberID, role)
		prefix := []byte(prefixStr)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rawID := strings.TrimPrefix(string(it.Item().Key()), prefixStr)
			id, err := uuid.Parse(rawID)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByConversation removes every membership of a conversation, both
// key orientations, in one transaction. Used when the staff roster is
// re-synced.
func (p ParticipantRepository) DeleteByConversation(conversationID uuid.UUID) error {
	participants, err := p.ListByConversation(conversationID)
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		for _, participant := range participants {
			if err := txn.Delete([]byte(participantKey(participant))); err != nil {
				return err
			}
			if err := txn.Delete([]byte(membershipKey(participant))); err != nil {
				return err
			}
		}
		return nil
	})
}

func participantKey(participant domain.Participant) string {
	return fmt.Sprintf("part:%s:%s", participant.ConversationID, participant.MemberID)
}

func membershipKey(participant domain.Participant) string {
	return fmt.Sprintf("membership:%s:%s:%s", participant.MemberID, participant.Role, participant.ConversationID)
}

func fromParticipant(participant domain.Participant) participantRow {
	return participantRow{
		ConversationID: participant.ConversationID.String(),
		MemberID:       participant.MemberID,
		Role:           string(participant.Role),
	}
}

func toParticipant(row participantRow) (domain.Participant, error) {
	id, err := uuid.Parse(row.ConversationID)
	if err != nil {
		return domain.Participant{}, err
	}
	return domain.Participant{
		ConversationID: id,
		MemberID:       row.MemberID,
		Role:           domain.Role(row.Role),
	}, nil
}
