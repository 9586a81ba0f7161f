// internal/domain/models/contest.go
package models

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContestState tracks where a contest is in its lifecycle.
type ContestState int

const (
	ContestInitializing      ContestState = 10  // manager is still setting it up
	ContestCreated           ContestState = 20  // setup complete
	ContestPendingPayment    ContestState = 30  // payment being processed
	ContestPendingFilled     ContestState = 40  // waiting for members
	ContestFilled            ContestState = 50  // full, not started
	ContestInProgress        ContestState = 60  // started
	ContestCompleted         ContestState = 70  // payouts can be designated
	ContestPayoutsDesignated ContestState = 80  // payouts designated by manager
	ContestPayoutsCompleted  ContestState = 90  // payouts being completed
	ContestClosed            ContestState = 100 // over
)

var contestStateNames = map[ContestState]string{
	ContestInitializing:      "initializing",
	ContestCreated:           "created",
	ContestPendingPayment:    "pending_payment",
	ContestPendingFilled:     "pending_filled",
	ContestFilled:            "filled",
	ContestInProgress:        "in_progress",
	ContestCompleted:         "completed",
	ContestPayoutsDesignated: "payouts_designated",
	ContestPayoutsCompleted:  "payouts_completed",
	ContestClosed:            "closed",
}

func (s ContestState) String() string {
	if n, ok := contestStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether s is one of the known states.
func (s ContestState) Valid() bool {
	_, ok := contestStateNames[s]
	return ok
}

// MemberRole is ordered; a higher role includes the lower ones.
type MemberRole int

const (
	MemberRoleMember  MemberRole = 10
	MemberRoleManager MemberRole = 50
	MemberRoleOwner   MemberRole = 100
)

// DefaultContestName is used when a contest is created without a name.
const DefaultContestName = "New Contest"

// MemberNotification is a message sent (or queued) to a contest member.
type MemberNotification struct {
	Sent    bool      `bson:"sent" json:"sent"`
	Message string    `bson:"message" json:"message"`
	SentAt  time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	SentTo  struct {
		Device string `bson:"device" json:"device"`
	} `bson:"sentTo" json:"sentTo"`
}

// ContestMember is an account's participation in a contest.
// Amounts are in cents.
type ContestMember struct {
	User          primitive.ObjectID   `bson:"user" json:"user"`
	AmountPaidIn  int64                `bson:"amountPaidIn" json:"amountPaidIn"`
	AmountOwed    int64                `bson:"amountOwed" json:"amountOwed"`
	Notifications []MemberNotification `bson:"notifications" json:"notifications"`
	Role          MemberRole           `bson:"role" json:"role"`
}

// HasRole reports whether the member holds role. Unless exact is set,
// any higher role also satisfies the check.
func (m ContestMember) HasRole(role MemberRole, exact bool) bool {
	if exact {
		return m.Role == role
	}
	return m.Role >= role
}

type Contest struct {
	ID          string             `bson:"_id" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Created     time.Time          `bson:"created" json:"created"`
	Modified    time.Time          `bson:"modified" json:"modified"`
	StartDate   time.Time          `bson:"startDate" json:"startDate"`
	EndDate     time.Time          `bson:"endDate" json:"endDate"`
	Members     []ContestMember    `bson:"members" json:"members"`
	State       ContestState       `bson:"state" json:"state"`
}

// NewContest returns a contest in the initializing state with a fresh UUID
// and the creator enrolled as owner.
func NewContest(name, description string, createdBy primitive.ObjectID, now time.Time) *Contest {
	if name == "" {
		name = DefaultContestName
	}
	now = now.UTC()
	return &Contest{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		Created:     now,
		Modified:    now,
		Members: []ContestMember{{
			User:          createdBy,
			Notifications: []MemberNotification{},
			Role:          MemberRoleOwner,
		}},
		State: ContestInitializing,
	}
}

// GetMember returns the member entry for userID, if any.
func (c *Contest) GetMember(userID primitive.ObjectID) (*ContestMember, bool) {
	for i := range c.Members {
		if c.Members[i].User == userID {
			return &c.Members[i], true
		}
	}
	return nil, false
}

// HasRole reports whether userID is a member holding at least role.
func (c *Contest) HasRole(userID primitive.ObjectID, role MemberRole) bool {
	m, ok := c.GetMember(userID)
	return ok && m.HasRole(role, false)
}
