package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shopdesk/domain"
)

type testStorefrontSuite struct {
	BaseDeskSuite
}

func TestStorefrontSuite(t *testing.T) {
	suite.Run(t, &testStorefrontSuite{})
}

func (s *testStorefrontSuite) TestCustomerConversationFlow() {
	ctx := context.Background()
	customer := "cust-100"
	staff := s.Roster()

	var conversation domain.Conversation

	s.Step("Customer opens their support conversation")
	{
		first, err := s.Desk.ResolveOrCreate(customer, domain.RoleCustomer, "", "", domain.KindDirectWithStaffGroup)
		s.Require().NoError(err)
		s.Dump("conversation", first)

		again, err := s.Desk.ResolveOrCreate(customer, domain.RoleCustomer, "", "", domain.KindDirectWithStaffGroup)
		s.Require().NoError(err)
		s.Require().Equal(first.ID, again.ID, "Re-resolving must return the same conversation")
		conversation = first
	}

	customerFeed := s.Desk.OpenFeed(conversation.ID)
	customerSink := newChanSink()

	s.Step("Customer attaches and sends the first message")
	{
		history, err := customerFeed.Attach(ctx, customerSink)
		s.Require().NoError(err)
		s.Require().Empty(history, "A fresh conversation has no history")

		s.Require().NoError(customerFeed.Send(ctx, domain.SendMessageCommand{
			ConversationID: conversation.ID,
			SenderID:       customer,
			SenderRole:     domain.RoleCustomer,
			Body:           "this scam charge is not mine, where is my parcel",
		}))

		echo := customerSink.Next(&s.BaseDeskSuite)
		s.Require().Equal(customer, echo.SenderID)
		s.Require().Equal("this **** charge is not mine, where is my parcel", echo.Body,
			"The stored body must already be censored")
		s.Dump("echoed message", echo)
	}

	s.Step("Every staff member is notified once, the customer is not")
	{
		for _, staffID := range staff {
			inbox, err := s.Desk.Notifications(staffID)
			s.Require().NoError(err)
			s.Require().Len(inbox, 1)
			s.Require().Equal(domain.NotificationChat, inbox[0].Kind)
			s.Require().Equal("/conversations/"+conversation.ID.String(), inbox[0].Link)
		}

		inbox, err := s.Desk.Notifications(customer)
		s.Require().NoError(err)
		s.Require().Empty(inbox)
	}

	s.Step("A staff member joins the conversation and replies")
	{
		staffFeed := s.Desk.OpenFeed(conversation.ID)
		staffSink := newChanSink()

		history, err := staffFeed.Attach(ctx, staffSink)
		s.Require().NoError(err)
		s.Require().Len(history, 1, "The staff session sees the customer message as history")

		s.Require().NoError(staffFeed.Send(ctx, domain.SendMessageCommand{
			ConversationID: conversation.ID,
			SenderID:       staff[0],
			SenderRole:     domain.RoleStaff,
			DisplayName:    "Anna from Support",
			Body:           "We refunded the charge, the parcel ships tomorrow",
		}))

		reply := customerSink.Next(&s.BaseDeskSuite)
		s.Require().Equal(staff[0], reply.SenderID)
		s.Require().Equal("Anna from Support", reply.DisplayName)
		staffFeed.Detach()
	}

	s.Step("The customer is notified about the staff reply")
	{
		inbox, err := s.Desk.Notifications(customer)
		s.Require().NoError(err)
		s.Require().Len(inbox, 1)

		s.Require().NoError(s.Desk.MarkRead(customer, inbox[0].ID))
		inbox, err = s.Desk.Notifications(customer)
		s.Require().NoError(err)
		s.Require().True(inbox[0].Read)
	}

	s.Step("The indexer catches up and search finds the exchange")
	{
		s.Eventually(func() bool {
			hits, err := s.Desk.Search(ctx, "parcel --conv "+conversation.ID.String())
			return err == nil && len(hits) == 2
		}, 10*time.Second, 100*time.Millisecond, "Both messages should become searchable")
	}

	customerFeed.Detach()
}

func (s *testStorefrontSuite) TestBackOfficeBroadcast() {
	ctx := context.Background()
	recipients := []string{"cust-200", "cust-201", "cust-202"}

	s.Step("Back-office sends a promotion to selected customers")
	s.Require().NoError(s.Desk.Broadcast(ctx, domain.BroadcastCommand{
		Recipients: recipients,
		Kind:       domain.NotificationPromotion,
		Title:      "Autumn sale",
		Body:       "Coats and boots 30% off this week",
		Link:       "/sale/autumn",
	}))

	s.Step("Each recipient finds exactly one promotion in their inbox")
	for _, recipientID := range recipients {
		inbox, err := s.Desk.Notifications(recipientID)
		s.Require().NoError(err)
		s.Require().Len(inbox, 1)
		s.Require().Equal(domain.NotificationPromotion, inbox[0].Kind)
		s.Require().Equal("Autumn sale", inbox[0].Title)
	}
}

func (s *testStorefrontSuite) TestStaffPairConversationIsSymmetric() {
	staff := s.Roster()
	s.Require().GreaterOrEqual(len(staff), 2, "This scenario needs two staff members")

	s.Step("Both staff members resolve the pair conversation from their own side")
	left, err := s.Desk.ResolveOrCreate(staff[0], domain.RoleStaff, staff[1], domain.RoleStaff, domain.KindStaffToStaff)
	s.Require().NoError(err)

	right, err := s.Desk.ResolveOrCreate(staff[1], domain.RoleStaff, staff[0], domain.RoleStaff, domain.KindStaffToStaff)
	s.Require().NoError(err)

	s.Require().Equal(left.ID, right.ID, "Call order must not change the resolved conversation")
}
