package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"shopdesk/domain"
	"shopdesk/moderation"
	"shopdesk/notify"
	"shopdesk/repositories"
	"shopdesk/resolver"
	"shopdesk/runtime/workers"
	"shopdesk/search"
	"shopdesk/services"
)

// rosterDirectory is the staff directory wired into the e2e desk. The
// roster comes from E2E_STAFF_ROSTER so scenarios can vary it.
type rosterDirectory struct {
	members []string
}

func (d rosterDirectory) ActiveStaff() ([]string, error) {
	return d.members, nil
}

// BaseDeskSuite wires a complete desk (badger store, resolver,
// dispatcher, moderation, bluge index with a supervised indexer worker)
// against temporary directories, one fresh stack per test.
type BaseDeskSuite struct {
	suite.Suite
	Config Config

	Desk     *services.DeskService
	Messages repositories.MessageRepository

	db             *badger.DB
	writer         *bluge.Writer
	supervisor     *workers.Supervisor
	cancel         context.CancelFunc
	supervisorDone chan struct{}
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseDeskSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *BaseDeskSuite) SetupTest() {
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.db = db

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(s.T().TempDir()))
	s.Require().NoError(err)
	s.writer = writer

	conversations := repositories.NewConversationRepository(db, log)
	participants := repositories.NewParticipantRepository(db, log)
	notifications := repositories.NewNotificationRepository(db, log)
	s.Messages = repositories.NewMessageRepository(db, log)

	moderator, err := moderation.NewModerator([]string{"scam", "freebie"}, '*', log)
	s.Require().NoError(err)

	directory := rosterDirectory{members: s.Config.StaffRoster}
	desk := resolver.New(conversations, participants, directory, log)
	dispatcher := notify.NewDispatcher(notifications, participants, log)
	index := search.NewMessageIndex(writer, log)

	s.Desk = services.NewDeskService(desk, s.Messages, dispatcher, moderator, index, log)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.supervisor = workers.NewSupervisor(log, 50*time.Millisecond)
	s.supervisor.Add(workers.NewIndexerWorker(s.Messages, index, log))
	s.supervisorDone = make(chan struct{})
	go func() {
		s.supervisor.Run(ctx)
		close(s.supervisorDone)
	}()
}

func (s *BaseDeskSuite) TearDownTest() {
	s.supervisor.Stop()
	s.cancel()
	select {
	case <-s.supervisorDone:
	case <-time.After(5 * time.Second):
		s.FailNow("Supervisor did not shut down in time")
	}
	s.Require().NoError(s.writer.Close())
	s.Require().NoError(s.db.Close())
}

// Step prints a colorized header so scenario logs read as a storyline.
func (s *BaseDeskSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Dump logs a value as indented JSON when E2E_DEBUG_JSON is enabled.
func (s *BaseDeskSuite) Dump(label string, value any) {
	if !s.Config.DebugJSON {
		return
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	s.Require().NoError(err)
	s.T().Logf("%s:\n%s", label, raw)
}

// Roster returns the configured staff member IDs.
func (s *BaseDeskSuite) Roster() []string {
	return s.Config.StaffRoster
}

// chanSink collects live feed deliveries for assertions.
type chanSink struct {
	deliveries chan domain.Message
}

func newChanSink() *chanSink {
	return &chanSink{deliveries: make(chan domain.Message, 64)}
}

func (c *chanSink) Deliver(_ context.Context, message domain.Message) error {
	c.deliveries <- message
	return nil
}

// Next blocks until the next live delivery or fails the calling test.
func (c *chanSink) Next(s *BaseDeskSuite) domain.Message {
	select {
	case message := <-c.deliveries:
		return message
	case <-time.After(5 * time.Second):
		s.FailNow("No live delivery arrived within the timeout")
		return domain.Message{}
	}
}
