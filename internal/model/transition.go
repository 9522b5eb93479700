package model

type Role string

const (
	RoleHirer     Role = "hirer"
	RoleCompanion Role = "companion"
	RoleScheduler Role = "scheduler"
	RoleNone      Role = ""
)

// Actor инициатор перехода. System: планировщик.
type Actor struct {
	UserID int64
	System bool
}

func UserActor(userID int64) Actor {
	return Actor{UserID: userID}
}

func SystemActor() Actor {
	return Actor{System: true}
}

// RoleIn определяет роль актора в бронировании
func (a Actor) RoleIn(b *Booking) Role {
	switch {
	case a.System:
		return RoleScheduler
	case a.UserID == b.HirerID:
		return RoleHirer
	case a.UserID == b.CompanionID:
		return RoleCompanion
	}
	return RoleNone
}

type TransitionKind string

const (
	TransitionConfirm         TransitionKind = "confirm"
	TransitionStart           TransitionKind = "start"
	TransitionComplete        TransitionKind = "complete"
	TransitionCompleteEarly   TransitionKind = "complete_early"
	TransitionCancel          TransitionKind = "cancel"
	TransitionDecline         TransitionKind = "decline"
	TransitionEmergencyCancel TransitionKind = "emergency_cancel"
	TransitionExpire          TransitionKind = "expire"
	TransitionExpireUnpaid    TransitionKind = "expire_unpaid"
	TransitionReportNoShow    TransitionKind = "report_no_show"
)

type TransitionRule struct {
	From  []BookingStatus
	To    BookingStatus
	Roles []Role
}

// Transitions таблица допустимых переходов
var Transitions = map[TransitionKind]TransitionRule{
	TransitionConfirm: {
		From:  []BookingStatus{BookingStatusPending},
		To:    BookingStatusConfirmed,
		Roles: []Role{RoleCompanion},
	},
	TransitionStart: {
		From:  []BookingStatus{BookingStatusConfirmed},
		To:    BookingStatusActive,
		Roles: []Role{RoleCompanion, RoleScheduler},
	},
	TransitionComplete: {
		From:  []BookingStatus{BookingStatusActive},
		To:    BookingStatusCompleted,
		Roles: []Role{RoleCompanion, RoleScheduler},
	},
	TransitionCompleteEarly: {
		From:  []BookingStatus{BookingStatusActive},
		To:    BookingStatusCompleted,
		Roles: []Role{RoleHirer, RoleCompanion},
	},
	TransitionCancel: {
		From:  []BookingStatus{BookingStatusPending, BookingStatusConfirmed},
		To:    BookingStatusCancelled,
		Roles: []Role{RoleHirer, RoleCompanion},
	},
	TransitionDecline: {
		From:  []BookingStatus{BookingStatusPending},
		To:    BookingStatusCancelled,
		Roles: []Role{RoleCompanion},
	},
	TransitionEmergencyCancel: {
		From:  []BookingStatus{BookingStatusPending, BookingStatusConfirmed},
		To:    BookingStatusCancelled,
		Roles: []Role{RoleHirer, RoleCompanion},
	},
	TransitionExpire: {
		From:  []BookingStatus{BookingStatusPending},
		To:    BookingStatusCancelled,
		Roles: []Role{RoleScheduler},
	},
	TransitionExpireUnpaid: {
		From:  []BookingStatus{BookingStatusConfirmed},
		To:    BookingStatusCancelled,
		Roles: []Role{RoleScheduler},
	},
	TransitionReportNoShow: {
		From:  []BookingStatus{BookingStatusActive},
		To:    BookingStatusDisputed,
		Roles: []Role{RoleHirer, RoleCompanion},
	},
}

// Authorize проверяет роль и исходный статус. Роль проверяется первой.
func (r TransitionRule) Authorize(kind TransitionKind, b *Booking, actor Actor) error {
	role := actor.RoleIn(b)
	if role == RoleNone {
		return Forbidden("user %d is not a party to booking %s", actor.UserID, b.ID)
	}

	allowed := false
	for _, rr := range r.Roles {
		if rr == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return Forbidden("%s may not %s booking", role, kind).
			With("role", string(role))
	}

	for _, from := range r.From {
		if b.Status == from {
			return nil
		}
	}
	return InvalidTransition("cannot %s booking in status %s", kind, b.Status).
		With("current_status", string(b.Status)).
		With("target_status", string(r.To))
}
