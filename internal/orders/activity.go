package orders

import (
	"github.com/google/uuid"

	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	"github.com/angelsplants/checkout-backend/pkg/outbox"
)

const ActorRoleSystem = "system"

// Actor identifies who caused an order change.
type Actor struct {
	UserID    *uuid.UUID
	Role      string
	IPAddress string
	UserAgent string
}

func SystemActor() Actor {
	return Actor{Role: ActorRoleSystem}
}

func UserActor(userID uuid.UUID, role enums.UserRole) Actor {
	id := userID
	return Actor{UserID: &id, Role: role.String()}
}

// Ref is the outbox form of the actor.
func (a Actor) Ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, Role: a.Role}
}

// ActivityOption decorates an activity entry.
type ActivityOption func(*models.OrderActivity)

func WithStatusChange(from, to enums.OrderStatus) ActivityOption {
	return func(a *models.OrderActivity) {
		a.OldStatus = &from
		a.NewStatus = &to
	}
}

func WithNote(note string) ActivityOption {
	return func(a *models.OrderActivity) {
		if note != "" {
			a.Note = &note
		}
	}
}

func WithDetails(details map[string]any) ActivityOption {
	return func(a *models.OrderActivity) {
		a.Details = details
	}
}

// NewActivity builds an audit entry for the order attributed to actor.
func NewActivity(orderID uuid.UUID, kind enums.ActivityType, actor Actor, opts ...ActivityOption) *models.OrderActivity {
	role := actor.Role
	if role == "" {
		role = ActorRoleSystem
	}
	activity := &models.OrderActivity{
		OrderID:      orderID,
		ActivityType: kind,
		ActorID:      actor.UserID,
		ActorRole:    role,
	}
	if actor.IPAddress != "" {
		ip := actor.IPAddress
		activity.IPAddress = &ip
	}
	if actor.UserAgent != "" {
		ua := actor.UserAgent
		activity.UserAgent = &ua
	}
	for _, opt := range opts {
		opt(activity)
	}
	return activity
}
